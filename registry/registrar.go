package registry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 注册条目状态
const (
	StatusRegistered = "registered"
	StatusValid      = "valid" // dry-run 下通过校验
	StatusInvalid    = "invalid"
	StatusFailed     = "failed"
)

// RegistrationRecorder 记录每个条目的注册结果.
type RegistrationRecorder interface {
	RecordRegistration(status string)
}

// ItemReport 是单个描述的注册结果.
type ItemReport struct {
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Errors []FieldError `json:"errors,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Report 汇总一次批量注册.
type Report struct {
	Items      []ItemReport  `json:"items"`
	Registered int           `json:"registered"`
	Invalid    int           `json:"invalid"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"-"`
}

// OK reports whether every item was accepted.
func (r *Report) OK() bool { return r.Invalid == 0 && r.Failed == 0 }

// Registrar 串联校验与持久化: 校验失败的条目不会写入存储.
type Registrar struct {
	validator *Validator
	store     *Store
	metrics   RegistrationRecorder
	logger    *zap.Logger
}

// NewRegistrar creates a registrar. metrics may be nil.
func NewRegistrar(validator *Validator, store *Store, metrics RegistrationRecorder, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{
		validator: validator,
		store:     store,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "registrar")),
	}
}

// Register validates the batch and upserts every valid descriptor. With
// dryRun set nothing is written.
func (r *Registrar) Register(ctx context.Context, ds []MethodDescriptor, dryRun bool) *Report {
	start := time.Now()
	report := &Report{Items: make([]ItemReport, len(ds))}

	results := r.validator.ValidateMany(ds)
	valid := make([]MethodDescriptor, 0, len(ds))
	validIdx := make([]int, 0, len(ds))
	for i, res := range results {
		report.Items[i] = ItemReport{Name: res.Name, Errors: res.Errors}
		if !res.Valid {
			report.Items[i].Status = StatusInvalid
			report.Invalid++
			r.logger.Warn("method rejected",
				zap.String("method", res.Name),
				zap.String("errors", res.Summary()))
			continue
		}
		if dryRun {
			report.Items[i].Status = StatusValid
			continue
		}
		valid = append(valid, ds[i])
		validIdx = append(validIdx, i)
	}

	if !dryRun && len(valid) > 0 {
		for j, out := range r.store.UpsertMany(ctx, valid) {
			item := &report.Items[validIdx[j]]
			if out.OK() {
				item.Status = StatusRegistered
				report.Registered++
				continue
			}
			item.Status = StatusFailed
			item.Error = out.Err.Error()
			report.Failed++
		}
	}

	if r.metrics != nil {
		for _, item := range report.Items {
			r.metrics.RecordRegistration(item.Status)
		}
	}

	report.Duration = time.Since(start)
	r.logger.Info("registration finished",
		zap.Int("total", len(ds)),
		zap.Int("registered", report.Registered),
		zap.Int("invalid", report.Invalid),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", dryRun))
	return report
}
