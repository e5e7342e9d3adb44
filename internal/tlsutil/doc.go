// Package tlsutil 集中提供 methodflow 出站连接的 TLS 设置。
//
// 规划模型的 HTTP 客户端与 Redis 连接共用同一套加固配置
// （TLS 1.2+，仅 AEAD 密码套件）；ClientConfig 可追加私有 CA。
package tlsutil
