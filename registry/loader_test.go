package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/methodflow/types"
)

func TestLoader_EmptyRegistryWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	db := newTestDB(t)
	require.NoError(t, NewStore(db, nil).EnsureSchema(context.Background()))
	loader := NewLoader(db, zap.New(core))

	methods, err := loader.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, methods)
	assert.Empty(t, methods)
	assert.Equal(t, 1, logs.FilterMessage(WarnEmptyRegistry).Len())

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CatalogEntry{}, catalog.Entries)
	assert.Equal(t, []string{WarnEmptyRegistry}, catalog.Warnings)
}

func TestLoader_SkipsMalformedRows(t *testing.T) {
	store, loader := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertOne(ctx, addDescriptor()))

	now := time.Now()
	broken := methodRecord{
		Name:           "broken",
		Description:    "stored by hand",
		ParametersJSON: `{"not": "a list"`,
		ReturnType:     "string",
		ModulePath:     "tools.broken",
		FunctionName:   "broken",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.db.Create(&broken).Error)

	methods, err := loader.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "add", methods[0].Name)

	catalog, err := loader.LoadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog.Warnings, 1)
	assert.Contains(t, catalog.Warnings[0], `"broken"`)

	_, err = loader.LoadByName(ctx, "broken")
	assert.True(t, types.IsErrorCode(err, types.ErrConfiguration))
}

func TestNormalizeParameters_Shapes(t *testing.T) {
	want := []ParameterSpec{
		{Name: "city", Type: TypeString, Description: "city name", Required: true},
		{Name: "unit", Type: TypeString, Description: "unit", Default: "celsius"},
	}
	text := `[{"name":"city","type":"str","description":"city name","required":true},
	          {"name":"unit","type":"string","description":"unit","default":"celsius"}]`

	tests := []struct {
		name string
		raw  any
	}{
		{"text", text},
		{"bytes", []byte(text)},
		{"decoded", []any{
			map[string]any{"name": "city", "type": "str", "description": "city name", "required": true},
			map[string]any{"name": "unit", "type": "string", "description": "unit", "default": "celsius"},
		}},
		{"decoded maps", []map[string]any{
			{"name": "city", "type": "string", "description": "city name", "required": true},
			{"name": "unit", "type": "string", "description": "unit", "default": "celsius"},
		}},
		{"typed", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeParameters(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeParameters_RestoresNumericDefaults(t *testing.T) {
	got, err := NormalizeParameters(`[
		{"name":"width","type":"int","description":"w","default":5},
		{"name":"ratio","type":"float","description":"r","default":2},
		{"name":"limit","type":"integer","description":"l","default":2.5}]`)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].Default)
	assert.Equal(t, 2.0, got[1].Default)
	assert.Equal(t, 2.5, got[2].Default, "a fractional value is left for the validator to reject")
}

func TestNormalizeParameters_Errors(t *testing.T) {
	for name, raw := range map[string]any{
		"bad json":      "[{",
		"not an array":  `{"name":"x"}`,
		"scalar item":   `[1]`,
		"missing name":  `[{"type":"string"}]`,
		"unknown shape": 42,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeParameters(raw)
			assert.True(t, types.IsErrorCode(err, types.ErrConfiguration), "got %v", err)
		})
	}

	got, err := NormalizeParameters(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestToCapabilityCatalog(t *testing.T) {
	assert.Equal(t, []CatalogEntry{}, ToCapabilityCatalog(nil))

	d := addDescriptor()
	d.Parameters = append(d.Parameters,
		ParameterSpec{Name: "precision", Type: "float", Description: "rounding", Default: 2.0},
		ParameterSpec{Name: "mode", Type: "decimal", Description: "legacy tag"},
	)

	entries := ToCapabilityCatalog([]MethodDescriptor{d})
	require.Len(t, entries, 1)
	e := entries[0]

	assert.Equal(t, "add", e.Name)
	assert.Equal(t, "object", e.Parameters.Type)
	assert.Equal(t, []string{"a", "b"}, e.Parameters.Required)
	assert.Equal(t, []string{"a", "b", "precision", "mode"}, e.Parameters.Order)
	assert.Equal(t, TypeInteger, e.Parameters.Properties["a"].Type)
	assert.Equal(t, TypeNumber, e.Parameters.Properties["precision"].Type)
	assert.Equal(t, 2.0, e.Parameters.Properties["precision"].Default)
	assert.Equal(t, TypeString, e.Parameters.Properties["mode"].Type)
	assert.True(t, e.Parameters.IsRequired("b"))
	assert.False(t, e.Parameters.IsRequired("mode"))
}
