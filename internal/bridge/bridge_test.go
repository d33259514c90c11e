package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestInvoke_JSONRoundTrip(t *testing.T) {
	b := New(true, nil)
	b.Register("echo", func(ctx context.Context, raw json.RawMessage) (any, error) {
		a, err := Decode[echoArgs](raw)
		if err != nil {
			return nil, err
		}
		return map[string]any{"name": a.Name, "count": a.Count + 1}, nil
	})

	var out echoArgs
	require.NoError(t, b.Invoke(context.Background(), "echo", echoArgs{Name: "acme", Count: 1}, &out))
	assert.Equal(t, echoArgs{Name: "acme", Count: 2}, out)
}

func TestInvoke_NoShell(t *testing.T) {
	called := false
	b := New(false, nil)
	b.Register("echo", func(context.Context, json.RawMessage) (any, error) {
		called = true
		return nil, nil
	})
	err := b.Invoke(context.Background(), "echo", nil, nil)
	assert.ErrorIs(t, err, ErrShellUnavailable)
	assert.False(t, called)
	assert.False(t, b.Available())
}

func TestInvoke_UnknownCommand(t *testing.T) {
	b := New(true, nil)
	err := b.Invoke(context.Background(), "missing", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestInvoke_HandlerErrorIsCommandError(t *testing.T) {
	cause := errors.New("disk full")
	b := New(true, nil)
	b.Register("fail", func(context.Context, json.RawMessage) (any, error) { return nil, cause })

	err := b.Invoke(context.Background(), "fail", map[string]string{"x": "y"}, nil)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "fail", cmdErr.Command)
	assert.ErrorIs(t, err, cause)
}

func TestDecode_InvalidArgs(t *testing.T) {
	_, err := Decode[echoArgs](json.RawMessage(`{"count":"x"}`))
	assert.Error(t, err)

	v, err := Decode[echoArgs](nil)
	require.NoError(t, err)
	assert.Equal(t, echoArgs{}, v)
}

func TestCommandsSorted(t *testing.T) {
	b := New(true, nil)
	noop := func(context.Context, json.RawMessage) (any, error) { return nil, nil }
	b.Register("b", noop)
	b.Register("a", noop)
	assert.Equal(t, []string{"a", "b"}, b.Commands())
}
