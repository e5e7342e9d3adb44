// Package config 提供 methodflow 的配置加载。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 环境变量以 METHODFLOW_ 为前缀。Validate 在启动时一次性报告全部问题。
package config
