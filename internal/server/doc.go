/*
包 server 管理 HTTP 服务器的生命周期。

Manager 封装 net/http.Server：Start 在后台监听，Run 阻塞到 context
结束后优雅关闭，Shutdown 在 ShutdownTimeout 内排空请求。
methodflow serve 用两个 Manager 分别承载 API 与 /metrics，
由 errgroup 统一编排。
*/
package server
