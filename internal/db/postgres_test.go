package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		pc   PoolConfig
		ok   bool
	}{
		{"narrow", PoolConfig{MaxConns: 4}, true},
		{"warm", PoolConfig{MaxConns: 4, MinConns: 4}, true},
		{"no conns", PoolConfig{}, false},
		{"min above max", PoolConfig{MaxConns: 2, MinConns: 3}, false},
		{"negative min", PoolConfig{MaxConns: 2, MinConns: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pc.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConnectPostgresRejectsBadInputBeforeDialing(t *testing.T) {
	ctx := context.Background()

	_, err := ConnectPostgres(ctx, "postgres://localhost:5432/clinic", PoolConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres pool")

	_, err = ConnectPostgres(ctx, "postgres://%zz", PoolConfig{MaxConns: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres dsn")
}
