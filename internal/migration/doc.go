// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 migration 管理向量快照表（sr_snapshots / sr_snapshot_corpora /
sr_snapshot_documents）的 Schema 版本，基于 golang-migrate，支持
PostgreSQL、MySQL 与 SQLite。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌在二进制中，也可以用
Config.MigrationsPath 指向外部目录（<path>/<dialect>/*.sql）。
SQLite 走纯 Go 驱动，无需 CGO。snapshot.backend=database 时，
生产环境应先执行 `scripturerag migrate up`，再运行 build-index。

# 核心类型

  - Migrator / DefaultMigrator：Up/Down/DownAll/Steps/Goto/Force/
    Version/Status/Info/Close。
  - Config：数据库类型、连接串、版本表名（默认 sr_schema_migrations）。
  - CLI：终端输出层，Run 按动作名分派，供 migrate 子命令使用。
  - NewMigratorFromConfig / NewMigratorFromDatabaseConfig：由应用
    配置创建迁移器。
*/
package migration
