/*
包 tasks 记录任务提交历史并驱动单次编排。

  - Record / Status: 任务记录与状态 pending -> processing -> completed|failed
  - Store: Create/Get/Update/List; MemoryStore 为进程内实现,
    RedisStore 以 JSON + TTL 保存并用有序集合按创建时间索引
  - Service: Submit 同步运行编排器并写入终态
*/
package tasks
