package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
)

type echoData struct {
	Params Params
}

func (echoData) ToolID() ID { return "echo" }

type stubTool struct {
	id       ID
	category Category
	params   []ParameterSpec
	calls    atomic.Int32
	run      func(ctx context.Context, p Params) (Data, error)
}

func (s *stubTool) ID() ID                      { return s.id }
func (s *stubTool) Name() string                { return string(s.id) }
func (s *stubTool) Category() Category          { return s.category }
func (s *stubTool) Parameters() []ParameterSpec { return s.params }

func (s *stubTool) Execute(ctx context.Context, p Params, _ ExecutionContext) (Data, error) {
	s.calls.Add(1)
	if s.run != nil {
		return s.run(ctx, p)
	}
	return echoData{Params: p}, nil
}

func TestRegistry_RegisterOverwritesAndUnregister(t *testing.T) {
	r := NewRegistry()

	first := &stubTool{id: "echo", category: CategoryCalculation}
	second := &stubTool{id: "echo", category: CategoryDatabaseQuery}
	r.Register(first)
	r.Register(first)
	r.Register(second)

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, r.List(), 1)

	r.Unregister("echo")
	r.Unregister("echo")
	_, ok = r.Get("echo")
	assert.False(t, ok)
}

func TestRegistry_ListByTypeAndCount(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{id: "b", category: CategoryCalculation})
	r.Register(&stubTool{id: "a", category: CategoryCalculation})
	r.Register(&stubTool{id: "c", category: CategoryContextualSearch})

	calc := r.ListByType(CategoryCalculation)
	require.Len(t, calc, 2)
	assert.Equal(t, ID("a"), calc[0].ID())
	assert.Equal(t, ID("b"), calc[1].ID())
	assert.Empty(t, r.ListByType(CategoryDatabaseQuery))

	assert.Equal(t, map[Category]int{CategoryCalculation: 2, CategoryContextualSearch: 1}, r.CountByType())
}

func TestRegistry_Suggest(t *testing.T) {
	r := NewRegistry(WithSuggestions(map[intent.Name][]ID{
		"PRECO": {"cost", "ghost"},
	}))
	r.Register(&stubTool{id: "cost"})

	assert.Equal(t, []ID{"cost"}, r.Suggest("PRECO"))
	assert.Empty(t, r.Suggest("SAUDACAO"))
}

func TestRegistry_ExecuteMissingParams(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{id: "echo", params: []ParameterSpec{
		{Name: "campus", Type: ParamString, Required: true},
		{Name: "weekday", Type: ParamString, Required: true},
		{Name: "note", Type: ParamString},
	}}
	r.Register(tool)

	res := r.Execute(context.Background(), "echo", Params{"note": "x"}, ExecutionContext{})
	assert.False(t, res.Success)
	assert.Equal(t, "missing required parameters: campus, weekday", res.Error)
	assert.Zero(t, tool.calls.Load(), "tool must not run with missing params")
}

func TestRegistry_ExecuteAppliesDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{id: "echo", params: []ParameterSpec{
		{Name: "meal", Type: ParamString, Required: true, Default: "almoco"},
		{Name: "quantity", Type: ParamNumber, Default: 1},
	}})

	in := Params{"quantity": 3}
	res := r.Execute(context.Background(), "echo", in, ExecutionContext{})
	require.True(t, res.Success, res.Error)

	data, ok := res.Data.(echoData)
	require.True(t, ok)
	assert.Equal(t, "almoco", data.Params.String("meal"))
	n, ok := data.Params.Int("quantity")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.NotContains(t, in, "meal", "caller params are not modified")
}

func TestRegistry_ExecuteIsolatesFailures(t *testing.T) {
	r := NewRegistry(WithTimeout(20 * time.Millisecond))
	r.Register(&stubTool{id: "boom", run: func(context.Context, Params) (Data, error) {
		panic("kaboom")
	}})
	r.Register(&stubTool{id: "err", run: func(context.Context, Params) (Data, error) {
		return nil, errors.New("database offline")
	}})
	r.Register(&stubTool{id: "slow", run: func(ctx context.Context, _ Params) (Data, error) {
		time.Sleep(time.Second)
		return nil, nil
	}})

	tests := []struct {
		id      ID
		wantErr string
	}{
		{"boom", "tool panicked: kaboom"},
		{"err", "database offline"},
		{"slow", "tool timed out after 20ms"},
		{"missing", "unknown tool: missing"},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			res := r.Execute(context.Background(), tt.id, nil, ExecutionContext{})
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)
			assert.Nil(t, res.Data)
		})
	}

	stats := r.Stats()
	assert.Equal(t, int64(4), stats.TotalExecutions)
	assert.Equal(t, int64(4), stats.FailureCount)
	assert.Equal(t, int64(1), stats.TimeoutCount)
	assert.Zero(t, stats.SuccessRate())
}

func TestStats_JSON(t *testing.T) {
	data, err := json.Marshal(Stats{TotalExecutions: 3, SuccessCount: 2, FailureCount: 1, TotalDuration: time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"total_executions": 3,
		"success_count": 2,
		"failure_count": 1,
		"timeout_count": 0,
		"total_duration_ns": 1000000
	}`, string(data))
}

type costData struct{ Total string }

func (costData) ToolID() ID { return "cost" }

func TestFormatters_Merge(t *testing.T) {
	f := Formatters{
		"cost": Typed(func(d costData) string { return "Total: " + d.Total }),
		"echo": Typed(func(d echoData) string { return fmt.Sprint(len(d.Params)) }),
	}

	results := []Result{
		{Tool: "cost", Success: true, Data: costData{Total: "R$ 3,00"}},
		{Tool: "cost", Success: false, Error: "boom"},
		{Tool: "echo", Success: true, Data: costData{Total: "wrong type"}},
		{Tool: "unformatted", Success: true, Data: costData{}},
	}

	assert.Equal(t, "Base.\n\nTotal: R$ 3,00", f.Merge("Base.", results))
	assert.Equal(t, "Base.", f.Merge("Base.", nil))
	assert.Equal(t, []ID{"cost", "echo"}, f.IDs())
}
