// Package bridge is the Local Command Bridge: a named-command dispatcher that
// only exists inside the desktop shell. Arguments and results cross a JSON
// boundary, the same way shell IPC would marshal them.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrShellUnavailable = errors.New("desktop shell is not available")
	ErrUnknownCommand   = errors.New("unknown local command")
)

// Handler executes one command. args is the raw JSON argument object.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// CommandError is a failure reported by a command handler.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("local command %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Invoker is what repositories depend on.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any, out any) error
}

type Bridge struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	present  bool
	logger   *zap.Logger
}

// New returns a bridge. When shellPresent is false every Invoke fails with
// ErrShellUnavailable.
func New(shellPresent bool, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{handlers: make(map[string]Handler), present: shellPresent, logger: logger}
}

// Available reports whether the desktop shell backs this bridge.
func (b *Bridge) Available() bool { return b.present }

// Register binds name to h, replacing any earlier handler.
func (b *Bridge) Register(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = h
}

// Commands lists the registered command names.
func (b *Bridge) Commands() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.handlers))
	for n := range b.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs command with args and decodes its result into out (may be nil).
func (b *Bridge) Invoke(ctx context.Context, command string, args any, out any) error {
	if !b.present {
		return ErrShellUnavailable
	}
	b.mu.RLock()
	h, ok := b.handlers[command]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}

	raw, err := encodeArgs(args)
	if err != nil {
		return fmt.Errorf("local command %s: encode args: %w", command, err)
	}

	start := time.Now()
	res, err := h(ctx, raw)
	if err != nil {
		b.logger.Debug("Local command failed",
			zap.String("command", command),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return &CommandError{Command: command, Err: err}
	}

	if out == nil {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("local command %s: encode result: %w", command, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("local command %s: decode result: %w", command, err)
	}
	return nil
}

func encodeArgs(args any) (json.RawMessage, error) {
	switch a := args.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return a, nil
	default:
		return json.Marshal(a)
	}
}

// Decode unmarshals command args into T. Handlers use it as their first step.
func Decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("invalid arguments: %w", err)
	}
	return v, nil
}
