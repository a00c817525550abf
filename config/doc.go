// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package config 提供 scripturerag 的配置管理功能。
//
// 配置优先级为 默认值 → YAML 文件 → 环境变量，环境变量通过 env tag
// 反射覆盖（前缀默认 SCRIPTURERAG）。检索阈值、批大小、重试策略
// 与采样参数都以具名配置项暴露。
package config
