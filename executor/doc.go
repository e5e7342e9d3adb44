// Package executor 按名称动态解析并调用已注册方法。
//
// 每次调用经历 Resolve -> Validate -> Coerce -> Invoke -> Collect,
// 所有失败都被收敛到 Result 中, 不会越过 Executor 边界抛出。
// 实现通过 Resolver 解析, 默认使用启动时填充的 StaticResolver;
// 解析结果缓存在注入的 CallableCache 中, 失败的解析不会缓存。
package executor
