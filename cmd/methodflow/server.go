package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/methodflow/api/handlers"
	"github.com/BaSui01/methodflow/config"
	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/internal/cache"
	"github.com/BaSui01/methodflow/internal/database"
	"github.com/BaSui01/methodflow/internal/metrics"
	"github.com/BaSui01/methodflow/internal/server"
	"github.com/BaSui01/methodflow/internal/telemetry"
	"github.com/BaSui01/methodflow/internal/tlsutil"
	"github.com/BaSui01/methodflow/llm"
	"github.com/BaSui01/methodflow/llm/providers/ollama"
	"github.com/BaSui01/methodflow/llm/tokenizer"
	"github.com/BaSui01/methodflow/orchestrator"
	"github.com/BaSui01/methodflow/registry"
	"github.com/BaSui01/methodflow/tasks"
	"github.com/BaSui01/methodflow/tools/builtin"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", "", "Path to config file")
	skipSchema := fs.Bool("skip-schema", false, "Do not create the registry table on startup")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting methodflow",
		zap.String("version", version()),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := NewServer(ctx, cfg, ServerOptions{SkipSchema: *skipSchema}, logger)
	if err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return 1
	}
	defer srv.Close()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return 1
	}
	logger.Info("methodflow stopped")
	return 0
}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// ServerOptions serve 命令的启动选项
type ServerOptions struct {
	SkipSchema bool
	// Provider 覆盖按配置创建的规划模型
	Provider llm.Provider
}

// Server 组装注册表、执行器、编排器与 HTTP 层
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers
	db        *database.PoolManager
	cache     *cache.Manager
	service   *tasks.Service
	handler   http.Handler

	apiManager     *server.Manager
	metricsManager *server.Manager

	cancel context.CancelFunc
}

// NewServer 按配置创建全部依赖。失败时已创建的资源会被释放。
func NewServer(ctx context.Context, cfg *config.Config, opts ServerOptions, logger *zap.Logger) (_ *Server, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	// 1. 指标与遥测
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollectorWithRegistry("methodflow", s.registry, logger)

	if s.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, logger); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	// 2. 注册表存储
	s.db, err = database.OpenFromConfig(cfg.Database, logger, database.WithStatsRecorder(s.collector))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if !opts.SkipSchema {
		if err = registry.NewStore(s.db.DB(), logger, registry.WithTransactor(s.db)).EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure registry schema: %w", err)
		}
	}
	loader := registry.NewLoader(s.db.DB(), logger)

	// 3. 执行器
	resolver := builtin.Bind(executor.NewStaticResolver())
	exec := executor.New(loader, executor.NewCallableCache(resolver),
		executor.WithTimeout(cfg.Executor.DefaultTimeout),
		executor.WithLogger(logger),
		executor.WithMetrics(s.collector),
	)

	// 4. 规划模型与编排器
	provider := opts.Provider
	if provider == nil {
		provider = ollama.New(ollama.Config{
			BaseURL:     cfg.Model.BaseURL,
			Model:       cfg.Model.Name,
			Timeout:     cfg.Model.Timeout,
			Temperature: float32(cfg.Model.Temperature),
			MaxTokens:   cfg.Model.MaxTokens,
		}, logger)
	}
	orch := orchestrator.New(provider, loader, exec, orchestrator.Config{
		Model:             cfg.Model.Name,
		Temperature:       float32(cfg.Model.Temperature),
		MaxTokens:         cfg.Model.MaxTokens,
		CompletionTimeout: cfg.Model.Timeout,
	},
		orchestrator.WithLogger(logger),
		orchestrator.WithTokenizer(tokenizer.New(cfg.Model.TokenizerEncoding, cfg.Model.ContextWindow, logger)),
		orchestrator.WithMetrics(s.collector),
	)

	// 5. 任务历史
	store, err := s.openTaskStore()
	if err != nil {
		return nil, err
	}
	s.service = tasks.NewService(store, orch, logger, tasks.WithMetrics(s.collector))

	// 6. HTTP 层
	health := handlers.NewHealthHandler(version(), logger)
	pool := s.db
	health.RegisterCheck(handlers.NewCheck("database", pool.Ping).
		WithDetails(func() any { return pool.GetStats() }))
	if s.cache != nil {
		health.RegisterCheck(handlers.NewCheck("redis", s.cache.Ping))
	}
	health.RegisterCheck(handlers.NewCheck("model", func(ctx context.Context) error {
		_, err := provider.HealthCheck(ctx)
		return err
	}))

	mux := http.NewServeMux()
	handlers.Routes{
		Health:  health,
		Methods: handlers.NewMethodHandler(loader, exec, logger).WithMaxTimeout(cfg.Server.WriteTimeout),
		Tasks:   handlers.NewTaskHandler(s.service, logger),
	}.Register(mux)

	limiterCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.handler = Chain(mux,
		Recovery(logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(cfg.Server.CORSAllowedOrigins),
		RateLimiter(limiterCtx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger),
	)

	s.apiManager = server.NewManager("api", s.handler, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	s.metricsManager = server.NewManager("metrics", metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.ReadTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	logger.Info("server initialized",
		zap.String("database", cfg.Database.Driver),
		zap.String("task_store", cfg.Tasks.Store),
		zap.String("model_provider", provider.Name()),
		zap.Bool("telemetry", s.telemetry.Enabled()),
	)
	return s, nil
}

// openTaskStore 按 tasks.store 选择任务历史存储
func (s *Server) openTaskStore() (tasks.Store, error) {
	switch s.cfg.Tasks.Store {
	case "memory":
		return tasks.NewMemoryStore(), nil
	case "redis":
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = s.cfg.Redis.Addr
		cacheCfg.Password = s.cfg.Redis.Password
		cacheCfg.DB = s.cfg.Redis.DB
		cacheCfg.PoolSize = s.cfg.Redis.PoolSize
		cacheCfg.MinIdleConns = s.cfg.Redis.MinIdleConns
		cacheCfg.DefaultTTL = s.cfg.Tasks.TTL
		if s.cfg.Redis.TLSEnabled {
			tlsCfg, err := tlsutil.ClientConfig{CAFile: s.cfg.Redis.TLSCAFile}.Build()
			if err != nil {
				return nil, fmt.Errorf("redis tls: %w", err)
			}
			cacheCfg.TLS = tlsCfg
		}

		m, err := cache.NewManager(cacheCfg, s.logger)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		s.cache = m
		return tasks.NewRedisStore(m, s.cfg.Tasks.TTL, s.logger), nil
	default:
		return nil, fmt.Errorf("unsupported task store %q", s.cfg.Tasks.Store)
	}
}

// Handler 返回带完整中间件链的 API handler
func (s *Server) Handler() http.Handler { return s.handler }

// Run 同时运行 API 与 metrics 服务器，任一退出或 ctx 结束时一并关闭
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.apiManager.Run(gctx) })
	g.Go(func() error { return s.metricsManager.Run(gctx) })

	s.logger.Info("servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close 释放全部资源，可重复调用
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("cache close error", zap.Error(err))
		}
		s.cache = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && !errors.Is(err, database.ErrPoolClosed) {
			s.logger.Warn("database close error", zap.Error(err))
		}
		s.db = nil
	}
	if s.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetry.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
		s.telemetry = nil
	}
}
