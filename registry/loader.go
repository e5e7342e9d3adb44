package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/methodflow/types"
)

// WarnEmptyRegistry is reported when the registry holds no methods.
const WarnEmptyRegistry = "registry is empty: no methods registered"

// Loader 读取描述, 统一参数表示, 并投影为规划器可用的能力目录.
type Loader struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLoader creates a loader reading from db.
func NewLoader(db *gorm.DB, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: db, logger: logger.With(zap.String("component", "registry_loader"))}
}

// LoadAll reads every registered method ordered by name. Rows whose stored
// parameters cannot be normalized are skipped and logged. An empty registry
// logs a warning and returns an empty slice.
func (l *Loader) LoadAll(ctx context.Context) ([]MethodDescriptor, error) {
	methods, _, err := l.load(ctx)
	return methods, err
}

func (l *Loader) load(ctx context.Context) ([]MethodDescriptor, []string, error) {
	var recs []methodRecord
	if err := l.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, nil, types.WrapError(err, types.ErrStorage, "load methods")
	}

	methods := make([]MethodDescriptor, 0, len(recs))
	var warnings []string
	if len(recs) == 0 {
		l.logger.Warn(WarnEmptyRegistry)
		return methods, []string{WarnEmptyRegistry}, nil
	}

	for i := range recs {
		d, err := recs[i].toDescriptor()
		if err != nil {
			msg := fmt.Sprintf("skipped method %q: %v", recs[i].Name, err)
			l.logger.Warn("skipping method with malformed parameters",
				zap.String("method", recs[i].Name),
				zap.Error(err))
			warnings = append(warnings, msg)
			continue
		}
		methods = append(methods, d)
	}

	l.logger.Debug("methods loaded", zap.Int("count", len(methods)), zap.Int("skipped", len(warnings)))
	return methods, warnings, nil
}

// LoadByName returns the named method, or nil when it is not registered.
func (l *Loader) LoadByName(ctx context.Context, name string) (*MethodDescriptor, error) {
	var rec methodRecord
	err := l.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(err, types.ErrStorage, fmt.Sprintf("load method %q", name))
	}
	d, err := rec.toDescriptor()
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Catalog 是一次加载得到的能力目录, 附带加载过程中的警告.
type Catalog struct {
	Entries  []CatalogEntry `json:"methods"`
	Warnings []string       `json:"warnings,omitempty"`
}

// LoadCatalog loads every method and projects it into a capability catalog.
func (l *Loader) LoadCatalog(ctx context.Context) (*Catalog, error) {
	methods, warnings, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{Entries: ToCapabilityCatalog(methods), Warnings: warnings}, nil
}

// NormalizeParameters turns a stored parameters field into a typed list. It
// accepts raw JSON text or bytes as well as already-decoded values, so callers
// never branch on how the driver returned the column.
func NormalizeParameters(raw any) ([]ParameterSpec, error) {
	switch v := raw.(type) {
	case nil:
		return []ParameterSpec{}, nil
	case []ParameterSpec:
		return v, nil
	case string:
		return decodeParameters([]byte(v))
	case []byte:
		return decodeParameters(v)
	case json.RawMessage:
		return decodeParameters(v)
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return parametersFromItems(items)
	case []any:
		return parametersFromItems(v)
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unsupported parameters representation %T", raw)
	}
}

func decodeParameters(data []byte) ([]ParameterSpec, error) {
	if len(data) == 0 {
		return []ParameterSpec{}, nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, types.WrapError(err, types.ErrConfiguration, "decode parameters json")
	}
	return parametersFromItems(items)
}

func parametersFromItems(items []any) ([]ParameterSpec, error) {
	params := make([]ParameterSpec, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, types.Errorf(types.ErrConfiguration, "parameter %d is %T, want object", i, item)
		}
		name, _ := m["name"].(string)
		if name == "" {
			return nil, types.Errorf(types.ErrConfiguration, "parameter %d has no name", i)
		}
		tag, _ := m["type"].(string)
		desc, _ := m["description"].(string)
		required, _ := m["required"].(bool)
		typ := NormalizeType(tag)
		params = append(params, ParameterSpec{
			Name:        name,
			Type:        typ,
			Description: desc,
			Required:    required,
			Default:     restoreDefault(typ, m["default"]),
		})
	}
	return params, nil
}

// restoreDefault 把 JSON 解码得到的数值默认值还原为声明类型:
// integer 为 int, number 为 float64. 其余值原样返回.
func restoreDefault(t ParamType, v any) any {
	switch t {
	case TypeInteger:
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) && n >= -(1<<63) && n < 1<<63 {
				return int(n)
			}
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	case TypeNumber:
		switch n := v.(type) {
		case int:
			return float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		}
	}
	return v
}
