// =============================================================================
// 📦 methodflow 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Model:     DefaultModelConfig(),
		Executor:  DefaultExecutorConfig(),
		Tasks:     DefaultTasksConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    3 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "methodflow",
		Password:        "",
		Name:            "methodflow",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultModelConfig 返回默认模型配置
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:          "ollama",
		BaseURL:           "http://localhost:11434",
		Name:              "qwen2.5:7b",
		Temperature:       0.7,
		MaxTokens:         2000,
		Timeout:           60 * time.Second,
		TokenizerEncoding: "cl100k_base",
		ContextWindow:     8192,
	}
}

// DefaultExecutorConfig 返回默认执行器配置
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{DefaultTimeout: 30 * time.Second}
}

// DefaultTasksConfig 返回默认任务历史配置
func DefaultTasksConfig() TasksConfig {
	return TasksConfig{
		Store: "memory",
		TTL:   24 * time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		OTLPEndpoint:   "localhost:4317",
		ServiceName:    "methodflow",
		SampleRate:     0.1,
		Insecure:       true,
		ExportInterval: 15 * time.Second,
	}
}
