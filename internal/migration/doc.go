/*
包 migration 管理方法注册表的 Schema 版本，支持 PostgreSQL、MySQL 与 SQLite，
基于 golang-migrate 实现。

迁移 SQL 以 embed.FS 内嵌在 migrations/<数据库类型>/ 下，文件名形如
000001_create_registered_methods.up.sql。SQLite 使用纯 Go 的
modernc.org/sqlite 驱动。

  - Migrator：Up、Down、DownAll、Steps、Goto、Force、Version、Status、Info。
  - DefaultMigrator：Migrator 的 golang-migrate 实现，日志转给 zap。
  - CLI：`methodflow migrate <command>` 的输出与参数解析。
  - NewMigratorFromConfig：由 config.DatabaseConfig 构造连接串。
*/
package migration
