package registry

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/BaSui01/methodflow/types"
)

// methodRecord 是 registered_methods 表的一行.
type methodRecord struct {
	ID             uint               `gorm:"primaryKey"`
	Name           string             `gorm:"size:100;not null;uniqueIndex:idx_method_name"` // 方法名, 全局唯一
	Description    string             `gorm:"type:text;not null"`
	ParametersJSON parametersDocument `gorm:"column:parameters_json;not null"` // 参数数组的 JSON 文档
	ReturnType     string             `gorm:"size:50;not null"`
	ModulePath     string             `gorm:"size:255;not null"`
	FunctionName   string             `gorm:"size:100;not null"`
	CreatedAt      time.Time          `gorm:"not null"`
	UpdatedAt      time.Time          `gorm:"not null;index:idx_updated_at"`
}

// parametersDocument 是参数数组的 JSON 文档. postgres 存为 JSONB,
// mysql 存为 JSON, 其余方言存为文本.
type parametersDocument string

// GormDataType 声明通用数据类型.
func (parametersDocument) GormDataType() string { return "json" }

// GormDBDataType 按方言返回列类型.
func (parametersDocument) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "mysql":
		return "JSON"
	default:
		return "TEXT"
	}
}

// Value 实现 driver.Valuer.
func (d parametersDocument) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan 实现 sql.Scanner, 接受驱动返回的文本或字节.
func (d *parametersDocument) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case string:
		*d = parametersDocument(v)
	case []byte:
		*d = parametersDocument(v)
	default:
		return fmt.Errorf("parameters_json: unsupported column value %T", src)
	}
	return nil
}

// TableName 指定表名.
func (methodRecord) TableName() string {
	return "registered_methods"
}

// upsertColumns 是名称冲突时整体替换的列.
var upsertColumns = []string{
	"description",
	"parameters_json",
	"return_type",
	"module_path",
	"function_name",
	"updated_at",
}

func newMethodRecord(d MethodDescriptor, now time.Time) (*methodRecord, error) {
	params := d.Parameters
	if params == nil {
		params = []ParameterSpec{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfiguration,
			fmt.Sprintf("encode parameters of method %q", d.Name))
	}
	return &methodRecord{
		Name:           d.Name,
		Description:    d.Description,
		ParametersJSON: parametersDocument(raw),
		ReturnType:     string(d.ReturnType),
		ModulePath:     d.ModulePath,
		FunctionName:   d.FunctionName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *methodRecord) toDescriptor() (MethodDescriptor, error) {
	params, err := NormalizeParameters(string(r.ParametersJSON))
	if err != nil {
		return MethodDescriptor{}, err
	}
	return MethodDescriptor{
		Name:        r.Name,
		Description: r.Description,
		Parameters:  params,
		ReturnType:  NormalizeType(r.ReturnType),
		Locator: Locator{
			ModulePath:   r.ModulePath,
			FunctionName: r.FunctionName,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// UpsertOutcome 是批量写入中单个条目的结果.
type UpsertOutcome struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// OK reports whether the item was committed.
func (o UpsertOutcome) OK() bool { return o.Err == nil }

// Transactor 在单个事务中执行写操作; database.PoolManager 满足该接口.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StoreOption 配置 Store.
type StoreOption func(*Store)

// WithTransactor 让写操作经由 t 开启事务.
func WithTransactor(t Transactor) StoreOption {
	return func(s *Store) { s.tx = t }
}

// Store 以方法名为键事务化持久化已校验的描述.
type Store struct {
	db     *gorm.DB
	tx     Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a registry store on top of db.
func NewStore(db *gorm.DB, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		db:     db,
		logger: logger.With(zap.String("component", "registry_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.tx != nil {
		return s.tx.WithTransaction(ctx, fn)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// EnsureSchema creates the registered_methods table and its indexes. Safe to
// call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&methodRecord{}); err != nil {
		return types.WrapError(err, types.ErrStorage, "ensure registry schema")
	}
	return nil
}

// UpsertOne inserts d, or replaces every field of the existing row with the
// same name and advances updated_at. The write runs in its own transaction.
func (s *Store) UpsertOne(ctx context.Context, d MethodDescriptor) error {
	rec, err := newMethodRecord(d, s.now())
	if err != nil {
		return err
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).Create(rec).Error
	})
	if err != nil {
		s.logger.Error("upsert failed", zap.String("method", d.Name), zap.Error(err))
		return types.WrapError(err, types.ErrStorage, fmt.Sprintf("upsert method %q", d.Name))
	}

	s.logger.Debug("method upserted", zap.String("method", d.Name))
	return nil
}

// UpsertMany writes each descriptor in its own transaction. A failing item
// is reported in its outcome and does not block the others.
func (s *Store) UpsertMany(ctx context.Context, ds []MethodDescriptor) []UpsertOutcome {
	outcomes := make([]UpsertOutcome, len(ds))
	failed := 0
	for i, d := range ds {
		outcomes[i] = UpsertOutcome{Name: d.Name, Err: s.UpsertOne(ctx, d)}
		if outcomes[i].Err != nil {
			failed++
		}
	}
	s.logger.Info("batch upsert finished",
		zap.Int("total", len(ds)),
		zap.Int("failed", failed))
	return outcomes
}

// Delete removes the named method. Deleting an absent name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("name = ?", name).Delete(&methodRecord{}).Error
	})
	if err != nil {
		return types.WrapError(err, types.ErrStorage, fmt.Sprintf("delete method %q", name))
	}
	return nil
}

// Count returns the number of registered methods.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&methodRecord{}).Count(&n).Error; err != nil {
		return 0, types.WrapError(err, types.ErrStorage, "count methods")
	}
	return n, nil
}
