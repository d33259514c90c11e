// Package connectivity resolves how the process reaches its data:
// the hosted backend (remote), the desktop shell's local store (local),
// or the local store while the network is down (offline).
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Mode string

const (
	ModeRemote  Mode = "remote"
	ModeLocal   Mode = "local"
	ModeOffline Mode = "offline"
)

// ParseMode maps a configuration value onto a preferred mode. Anything other
// than "remote" prefers the local store.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRemote {
		return ModeRemote
	}
	return ModeLocal
}

type ShellDetector interface {
	ShellPresent() bool
}

type NetworkProber interface {
	Reachable(ctx context.Context) bool
}

// StaticShell reports a fixed shell presence (from configuration).
type StaticShell bool

func (s StaticShell) ShellPresent() bool { return bool(s) }

// Resolver owns the process-wide mode value. Feature modules only read it;
// Refresh/Run are the only writers.
type Resolver struct {
	shell   ShellDetector
	prober  NetworkProber
	prefer  Mode
	timeout time.Duration
	logger  *zap.Logger

	current atomic.Value // Mode

	mu   sync.Mutex
	subs []chan Mode
}

func NewResolver(shell ShellDetector, prober NetworkProber, prefer Mode, probeTimeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probeTimeout <= 0 {
		probeTimeout = 3 * time.Second
	}
	r := &Resolver{
		shell:   shell,
		prober:  prober,
		prefer:  prefer,
		timeout: probeTimeout,
		logger:  logger,
	}
	initial := ModeRemote
	if r.ShellPresent() {
		initial = r.prefer
		if initial != ModeRemote {
			initial = ModeLocal
		}
	}
	r.current.Store(initial)
	return r
}

// Mode returns the last evaluated mode.
func (r *Resolver) Mode() Mode {
	return r.current.Load().(Mode)
}

func (r *Resolver) ShellPresent() bool {
	return r.shell != nil && r.shell.ShellPresent()
}

// Refresh re-evaluates the mode from the shell and network conditions and
// notifies subscribers when it changed.
func (r *Resolver) Refresh(ctx context.Context) Mode {
	next := r.evaluate(ctx)
	prev := r.current.Swap(next).(Mode)
	if prev != next {
		r.logger.Info("Connectivity mode changed",
			zap.String("from", string(prev)),
			zap.String("to", string(next)),
		)
		r.notify(next)
	}
	return next
}

func (r *Resolver) evaluate(ctx context.Context) Mode {
	if !r.ShellPresent() {
		return ModeRemote
	}
	reachable := false
	if r.prober != nil {
		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		reachable = r.prober.Reachable(probeCtx)
		cancel()
	}
	if !reachable {
		return ModeOffline
	}
	if r.prefer == ModeRemote {
		return ModeRemote
	}
	return ModeLocal
}

// Run refreshes the mode every interval until ctx is done.
func (r *Resolver) Run(ctx context.Context, interval time.Duration) {
	r.Refresh(ctx)
	if !r.ShellPresent() {
		// nothing can change without a shell
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Subscribe returns a channel receiving every mode change. Slow readers only
// ever see the latest value.
func (r *Resolver) Subscribe() <-chan Mode {
	ch := make(chan Mode, 1)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

func (r *Resolver) notify(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- m:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- m:
			default:
			}
		}
	}
}
