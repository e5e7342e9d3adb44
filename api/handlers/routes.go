package handlers

import "net/http"

// Routes 汇总全部 Handler，nil 字段对应的路由不注册
type Routes struct {
	Health  *HealthHandler
	Methods *MethodHandler
	Tasks   *TaskHandler
}

// Register 在 mux 上注册 API 路由
func (rt Routes) Register(mux *http.ServeMux) {
	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.HandleHealth)
		mux.HandleFunc("GET /healthz", rt.Health.HandleHealthz)
		mux.HandleFunc("GET /ready", rt.Health.HandleReady)
		mux.HandleFunc("GET /readyz", rt.Health.HandleReady)
		mux.HandleFunc("GET /version", rt.Health.HandleVersion)
	}
	if rt.Methods != nil {
		mux.HandleFunc("GET /api/methods", rt.Methods.HandleList)
		mux.HandleFunc("POST /api/methods/{name}/execute", rt.Methods.HandleExecute)
	}
	if rt.Tasks != nil {
		mux.HandleFunc("POST /api/tasks", rt.Tasks.HandleSubmit)
		mux.HandleFunc("GET /api/tasks", rt.Tasks.HandleList)
		mux.HandleFunc("GET /api/tasks/{id}", rt.Tasks.HandleGet)
	}
}
