/*
包 cache 封装 go-redis 客户端, 为任务历史提供 JSON 键值存储与有序集合索引。

# 核心类型

  - Manager: 持有 Redis 客户端, 提供 GetJSON/SetJSON/Delete/Ping,
    以及 SetJSONIndexed/RecentMembers/RemoveMembers 等索引操作
  - Config: 地址、密码、连接池大小、默认 TTL 与健康检查间隔

# 语义

  - 键不存在时返回 ErrCacheMiss, 可用 IsCacheMiss 判断
  - SetJSONIndexed 在 MULTI/EXEC 事务中同时写入值与索引
  - 后台健康检查在 Close 后退出
*/
package cache
