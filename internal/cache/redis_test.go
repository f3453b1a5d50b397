package cache

import (
	"context"
	"testing"

	"feedql/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		in       string
		wantAddr string
		wantPass string
		wantDB   int
		wantErr  bool
	}{
		{"redis://:mypassword@redis:6379/1", "redis:6379", "mypassword", 1, false},
		{"redis:6379", "redis:6379", "", 0, false},
		{"  localhost:6380 ", "localhost:6380", "", 0, false},
		{"", "", "", 0, true},
		{"http://nope", "", "", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			opts, err := Options(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAddr, opts.Addr)
			assert.Equal(t, tc.wantPass, opts.Password)
			assert.Equal(t, tc.wantDB, opts.DB)
		})
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer Close(rdb)

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb, err := Connect(context.Background(), addr)
	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestMetricsHookCountsErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer Close(rdb)

	before := testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr"))
	mr.SetError("boom")
	assert.Error(t, rdb.Incr(context.Background(), "counter").Err())
	mr.SetError("")
	assert.Equal(t, before+1, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("incr")))

	// A missing key is not an error.
	before = testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get"))
	assert.Error(t, rdb.Get(context.Background(), "absent").Err())
	assert.Equal(t, before, testutil.ToFloat64(observability.RedisErrors.WithLabelValues("get")))

	Close(nil)
}
