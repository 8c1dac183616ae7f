package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "localhost", Port: 6334, VectorSize: 384}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing host", func(c *Config) { c.Host = "" }},
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"zero vector size", func(c *Config) { c.VectorSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.NotZero(t, cfg.RetryBackoff)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)
}

func TestMatchCondition(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"string", "person", true},
		{"bool", true, true},
		{"int", 42, true},
		{"int64", int64(42), true},
		{"float unsupported", 0.5, false},
		{"slice unsupported", []string{"a"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := matchCondition("key", tt.value)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, cond)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			}
		})
	}
}

func TestSearchRejectsBadFilters(t *testing.T) {
	ix := &Index{}
	ctx := context.Background()
	vector := []float32{1, 0}

	_, err := ix.Search(ctx, "u1", ClassEntity, vector, 5, 0, map[string]any{"tenant_id": "u2"})
	assert.ErrorIs(t, err, ErrInvalidFilter, "reserved tenant key cannot be overridden")

	_, err = ix.Search(ctx, "u1", ClassEntity, vector, 5, 0, map[string]any{"strength": 0.5})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(grpccodes.Unavailable, "down"), true},
		{"deadline exceeded", status.Error(grpccodes.DeadlineExceeded, "slow"), true},
		{"aborted", status.Error(grpccodes.Aborted, "conflict"), true},
		{"resource exhausted", status.Error(grpccodes.ResourceExhausted, "quota"), true},
		{"invalid argument", status.Error(grpccodes.InvalidArgument, "bad"), false},
		{"not found", status.Error(grpccodes.NotFound, "missing"), false},
		{"permission denied", status.Error(grpccodes.PermissionDenied, "no"), false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}
