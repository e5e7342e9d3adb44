package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/methodflow/executor"
	"github.com/BaSui01/methodflow/registry"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"5*16", 80},
		{" 2 + 3 * 4 ", 14},
		{"(2 + 3) * 4", 20},
		{"-2**2", -4},
		{"2**3**2", 512},
		{"7 % 4", 3},
		{"1/4", 0.25},
		{"-(3 - 5)", 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	for _, expr := range []string{"", "2 +", "1/0", "(1 + 2", "2 $ 3", "import os"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			assert.Error(t, err)
		})
	}
}

func TestBind_ResolvesEveryDescriptor(t *testing.T) {
	r := Bind(executor.NewStaticResolver())
	v := registry.NewValidator(nil)

	for _, res := range v.ValidateMany(Descriptors()) {
		assert.True(t, res.Valid, res.Summary())
	}
	for _, d := range Descriptors() {
		_, err := r.Resolve(d.Locator)
		assert.NoError(t, err, d.Name)
	}
}

func TestBuiltins(t *testing.T) {
	ctx := context.Background()

	sum, err := Add(ctx, map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, 5, sum)

	calc, err := Calculate(ctx, map[string]any{"expression": "5*16"})
	require.NoError(t, err)
	assert.Equal(t, int64(80), calc.(map[string]any)["result"])

	w, err := GetWeather(ctx, map[string]any{"city": "北京", "unit": "celsius"})
	require.NoError(t, err)
	weather := w.(map[string]any)
	assert.Equal(t, "北京", weather["city"])
	assert.GreaterOrEqual(t, weather["temperature"].(int), -10)
	assert.LessOrEqual(t, weather["temperature"].(int), 35)

	_, err = GetWeather(ctx, map[string]any{"city": "x", "unit": "kelvin"})
	assert.Error(t, err)

	msg, err := CustomerToolCall(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "customer_tool_call function is called", msg)
}
