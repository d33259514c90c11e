package dualaccess

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/connectivity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoBackend interface {
	Name(ctx context.Context) (string, error)
}

type countingBackend struct {
	name  string
	err   error
	calls atomic.Int32
}

func (b *countingBackend) Name(context.Context) (string, error) {
	b.calls.Add(1)
	if b.err != nil {
		return "", b.err
	}
	return b.name, nil
}

func newPair() (*countingBackend, *countingBackend, Backends[echoBackend]) {
	remote := &countingBackend{name: "remote"}
	local := &countingBackend{name: "local"}
	return remote, local, Backends[echoBackend]{Remote: remote, Local: local}
}

func callName(ctx context.Context, b echoBackend) (string, error) { return b.Name(ctx) }

func TestPathFor(t *testing.T) {
	assert.Equal(t, PathRemote, PathFor(connectivity.ModeRemote))
	assert.Equal(t, PathLocal, PathFor(connectivity.ModeLocal))
	assert.Equal(t, PathLocal, PathFor(connectivity.ModeOffline))
	assert.Equal(t, PathRemote, PathFor(connectivity.Mode("")))
}

func TestDo_SelectsExactlyOneBackendPerMode(t *testing.T) {
	cases := []struct {
		mode       connectivity.Mode
		want       string
		wantRemote int32
		wantLocal  int32
	}{
		{connectivity.ModeRemote, "remote", 1, 0},
		{connectivity.ModeLocal, "local", 0, 1},
		{connectivity.ModeOffline, "local", 0, 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			remote, local, pair := newPair()
			r := NewRunner(StaticMode(tc.mode), nil, zap.NewNop())

			got, err := Do(context.Background(), r, "test", "Name", pair, callName)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantRemote, remote.calls.Load())
			assert.Equal(t, tc.wantLocal, local.calls.Load())
		})
	}
}

func TestDo_NoFailoverOnError(t *testing.T) {
	remote, local, pair := newPair()
	remote.err = errors.New("network unreachable")
	r := NewRunner(StaticMode(connectivity.ModeRemote), nil, zap.NewNop())

	_, err := Do(context.Background(), r, "test", "Name", pair, callName)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExternal))
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, int32(0), local.calls.Load(), "local path must never be tried after a remote failure")

	remote, local, pair = newPair()
	local.err = apperr.BusinessRule("rejected")
	r = NewRunner(StaticMode(connectivity.ModeOffline), nil, zap.NewNop())
	_, err = Do(context.Background(), r, "test", "Name", pair, callName)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule), "classified errors keep their kind")
	assert.Equal(t, int32(0), remote.calls.Load())
}

type switchingModes struct {
	modes []connectivity.Mode
	i     int
}

func (s *switchingModes) Mode() connectivity.Mode {
	m := s.modes[s.i]
	if s.i < len(s.modes)-1 {
		s.i++
	}
	return m
}

func TestDo_ReadsModeFreshPerOperation(t *testing.T) {
	remote, local, pair := newPair()
	r := NewRunner(&switchingModes{modes: []connectivity.Mode{connectivity.ModeRemote, connectivity.ModeLocal}}, nil, zap.NewNop())

	first, err := Do(context.Background(), r, "test", "Name", pair, callName)
	require.NoError(t, err)
	second, err := Do(context.Background(), r, "test", "Name", pair, callName)
	require.NoError(t, err)

	assert.Equal(t, "remote", first)
	assert.Equal(t, "local", second)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, int32(1), local.calls.Load())
}

func TestDo_PinnedModeHoldsAcrossOperations(t *testing.T) {
	remote, local, pair := newPair()
	r := NewRunner(&switchingModes{modes: []connectivity.Mode{connectivity.ModeLocal, connectivity.ModeRemote}}, nil, zap.NewNop())
	ctx := WithMode(context.Background(), connectivity.ModeOffline)

	for i := 0; i < 3; i++ {
		got, err := Do(ctx, r, "test", "Name", pair, callName)
		require.NoError(t, err)
		assert.Equal(t, "local", got)
	}
	assert.Equal(t, int32(0), remote.calls.Load())
	assert.Equal(t, int32(3), local.calls.Load())

	m, ok := ModeFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, connectivity.ModeOffline, m)
	_, ok = ModeFromContext(context.Background())
	assert.False(t, ok)
}

func TestDo_MissingLocalBackendFails(t *testing.T) {
	remote := &countingBackend{name: "remote"}
	r := NewRunner(StaticMode(connectivity.ModeLocal), nil, zap.NewNop())

	_, err := Do(context.Background(), r, "test", "Name", Backends[echoBackend]{Remote: remote}, callName)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindExternal))
	assert.Equal(t, int32(0), remote.calls.Load())
}

func TestDo_TrackPathAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	_, local, pair := newPair()
	r := NewRunner(StaticMode(connectivity.ModeOffline), metrics, zap.NewNop())

	ctx := TrackPath(context.Background())
	err := Exec(ctx, r, "test", "Touch", pair, func(ctx context.Context, b echoBackend) error {
		_, err := b.Name(ctx)
		return err
	})
	require.NoError(t, err)

	path, ok := PathFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, PathLocal, path)
	assert.Equal(t, int32(1), local.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("test", "Touch", "local", "ok")))

	_, ok = PathFromContext(context.Background())
	assert.False(t, ok)
}
