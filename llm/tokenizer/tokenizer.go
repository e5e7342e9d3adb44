package tokenizer

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Tokenizer 是统一的 Token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// New returns a tiktoken-backed tokenizer for encoding, falling back to the
// estimator when encoding is empty or its data cannot be loaded.
func New(encoding string, maxTokens int, logger *zap.Logger) Tokenizer {
	estimator := NewEstimatorTokenizer(maxTokens)
	if encoding == "" {
		return estimator
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallbackTokenizer{
		primary:   NewTiktokenTokenizer(encoding, maxTokens),
		secondary: estimator,
		logger:    logger.With(zap.String("component", "tokenizer")),
	}
}

// fallbackTokenizer 在主分词器初始化失败后永久切换到备用估算器.
type fallbackTokenizer struct {
	primary   Tokenizer
	secondary Tokenizer
	logger    *zap.Logger

	once     sync.Once
	degraded atomic.Bool
}

func (f *fallbackTokenizer) CountTokens(text string) (int, error) {
	if !f.degraded.Load() {
		n, err := f.primary.CountTokens(text)
		if err == nil {
			return n, nil
		}
		f.once.Do(func() {
			f.logger.Warn("tokenizer unavailable, using estimator",
				zap.String("tokenizer", f.primary.Name()),
				zap.Error(err))
			f.degraded.Store(true)
		})
	}
	return f.secondary.CountTokens(text)
}

func (f *fallbackTokenizer) MaxTokens() int { return f.primary.MaxTokens() }

func (f *fallbackTokenizer) Name() string {
	if f.degraded.Load() {
		return f.secondary.Name()
	}
	return f.primary.Name()
}
