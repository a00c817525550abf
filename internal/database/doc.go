// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，服务于
database 快照后端（rag.SQLSnapshotter）。

# 核心类型

  - Open / Dialector：按驱动（postgres、mysql、sqlite）打开 GORM 连接。
  - PoolManager：连接池管理器，提供 DB()、Ping()、GetStats()、Close()，
    后台健康检查可把连接数上报给 StatsRecorder。
  - PoolConfig：最大空闲/打开连接数、生命周期、空闲超时与健康检查间隔。
*/
package database
