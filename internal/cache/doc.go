// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 cache 是查询向量缓存的 Redis 后端。

Manager 封装 go-redis 客户端：创建时 PING，可选后台健康检查，
Close 可重复调用。rag.CachedEmbedder 通过 GetJSON/SetJSON 读写
查询向量，/ready 通过 Ping 探测连接。

Config 包含地址、密码、键前缀、连接池与默认 TTL，TLS 开启时
ServerName 取自地址的主机部分。

键不存在返回 ErrCacheMiss（用 IsCacheMiss 判断），关闭后的调用返回 ErrClosed。
*/
package cache
