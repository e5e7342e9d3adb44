/*
包 database 打开方法注册表所在的数据库，并管理其连接池。

# 核心类型

  - PoolManager：持有 GORM 实例与底层 sql.DB，提供 DB、Ping、
    GetStats、WithTransaction 与 Close。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔。
  - StatsRecorder：健康检查成功后接收打开与空闲连接数，
    由 internal/metrics.Collector 实现。

# 打开数据库

Open 按驱动名选择方言：postgres 与 mysql 使用 gorm 官方驱动，
sqlite 通过 gorm.io/driver/sqlite 挂接纯 Go 的 modernc.org/sqlite，
无需 cgo。OpenFromConfig 从 config.DatabaseConfig 构造 DSN，
SQLite 固定为单连接。
*/
package database
