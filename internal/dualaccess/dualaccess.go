// Package dualaccess selects, per operation, which backend serves it.
//
// Every operation family injects one Backends pair typed by its repository
// interface. Do reads the connectivity mode once, invokes exactly one side and
// returns its result or error. There is no failover: the two stores are not
// guaranteed to hold the same state. A caller that spans several operations
// (one HTTP request) pins the mode on its context with WithMode so every step
// lands on the same store.
package dualaccess

import (
	"context"
	"fmt"
	"time"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/connectivity"

	"go.uber.org/zap"
)

type Path string

const (
	PathRemote Path = "remote"
	PathLocal  Path = "local"
)

// PathFor maps a connectivity mode to the backend that serves it.
func PathFor(mode connectivity.Mode) Path {
	switch mode {
	case connectivity.ModeLocal, connectivity.ModeOffline:
		return PathLocal
	default:
		return PathRemote
	}
}

// ModeSource is the read side of the connectivity resolver.
type ModeSource interface {
	Mode() connectivity.Mode
}

// StaticMode is a fixed ModeSource (CLI one-shots, tests).
type StaticMode connectivity.Mode

func (m StaticMode) Mode() connectivity.Mode { return connectivity.Mode(m) }

// Backends is the remote/local pair for one operation family.
type Backends[T any] struct {
	Remote T
	Local  T
}

type Runner struct {
	modes   ModeSource
	metrics *Metrics
	logger  *zap.Logger
}

func NewRunner(modes ModeSource, metrics *Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{modes: modes, metrics: metrics, logger: logger}
}

// Mode exposes the mode the next operation would observe.
func (r *Runner) Mode() connectivity.Mode {
	return r.modes.Mode()
}

type modeKey struct{}

// WithMode pins the mode every Do on ctx observes, whatever the runner's
// source reports afterwards.
func WithMode(ctx context.Context, mode connectivity.Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, mode)
}

// ModeFromContext returns the mode pinned by WithMode.
func ModeFromContext(ctx context.Context) (connectivity.Mode, bool) {
	m, ok := ctx.Value(modeKey{}).(connectivity.Mode)
	return m, ok && m != ""
}

func (r *Runner) modeFor(ctx context.Context) connectivity.Mode {
	if m, ok := ModeFromContext(ctx); ok {
		return m
	}
	return r.modes.Mode()
}

type pathKey struct{}

// PathFromContext reports which path served the operation when the caller
// passed a context prepared with TrackPath.
func PathFromContext(ctx context.Context) (Path, bool) {
	if p, ok := ctx.Value(pathKey{}).(*Path); ok && *p != "" {
		return *p, true
	}
	return "", false
}

// TrackPath returns a context in which Do records the last path taken.
func TrackPath(ctx context.Context) context.Context {
	var p Path
	return context.WithValue(ctx, pathKey{}, &p)
}

// Do runs fn against the backend selected by the mode pinned on ctx, or the
// current mode when none is pinned.
func Do[T any, R any](ctx context.Context, r *Runner, family, op string, b Backends[T], fn func(context.Context, T) (R, error)) (R, error) {
	var zero R
	mode := r.modeFor(ctx)
	path := PathFor(mode)
	fullOp := family + "." + op

	backend := b.Remote
	if path == PathLocal {
		backend = b.Local
	}
	if isNil(backend) {
		err := apperr.External(fullOp, fmt.Errorf("%s backend is not available in %s mode", path, mode))
		r.observe(family, op, path, "unavailable", 0)
		return zero, err
	}
	if p, ok := ctx.Value(pathKey{}).(*Path); ok {
		*p = path
	}

	start := time.Now()
	res, err := fn(ctx, backend)
	elapsed := time.Since(start)

	if err != nil {
		r.observe(family, op, path, "error", elapsed)
		r.logger.Error("Data operation failed",
			zap.String("family", family),
			zap.String("op", op),
			zap.String("mode", string(mode)),
			zap.String("path", string(path)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return zero, apperr.Wrap(apperr.KindExternal, fullOp, err)
	}

	r.observe(family, op, path, "ok", elapsed)
	r.logger.Debug("Data operation",
		zap.String("family", family),
		zap.String("op", op),
		zap.String("mode", string(mode)),
		zap.String("path", string(path)),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

// Exec is Do for operations without a result.
func Exec[T any](ctx context.Context, r *Runner, family, op string, b Backends[T], fn func(context.Context, T) error) error {
	_, err := Do(ctx, r, family, op, b, func(ctx context.Context, backend T) (struct{}, error) {
		return struct{}{}, fn(ctx, backend)
	})
	return err
}

func (r *Runner) observe(family, op string, path Path, outcome string, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.observe(family, op, string(path), outcome, elapsed)
}

func isNil(v any) bool {
	return v == nil
}
