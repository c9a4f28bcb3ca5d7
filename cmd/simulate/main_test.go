package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationMetrics(t *testing.T) {
	var om OperationMetrics
	for i, status := range []int{201, 200, 400, 404, 500, 0} {
		om.Record(time.Duration(i+1)*time.Millisecond, status)
	}

	assert.EqualValues(t, 6, om.Total)
	assert.EqualValues(t, 2, om.Success)
	assert.EqualValues(t, 2, om.Rejected)
	assert.EqualValues(t, 2, om.Error)

	avg, min, max, p50, p95 := om.Stats()
	assert.Equal(t, 3500*time.Microsecond, avg)
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, 6*time.Millisecond, max)
	assert.Equal(t, 4*time.Millisecond, p50)
	assert.Equal(t, 6*time.Millisecond, p95)
}

func TestValidateConfigNormalizesRatios(t *testing.T) {
	cfg := SimConfig{Workers: 1, Duration: time.Second, BookingRatio: 2, UpdateRatio: 1, ReadRatio: 1}
	require.NoError(t, validateConfig(&cfg))
	assert.InDelta(t, 0.5, cfg.BookingRatio, 1e-9)
	assert.InDelta(t, 0.25, cfg.ReadRatio, 1e-9)

	assert.Error(t, validateConfig(&SimConfig{Workers: 0, Duration: time.Second, ReadRatio: 1}))
	assert.Error(t, validateConfig(&SimConfig{Workers: 1, Duration: time.Second}))
	assert.Error(t, validateConfig(&SimConfig{Workers: 1, Duration: time.Second, ReadRatio: 1, Email: "a@b.io"}))
}
