// Package execxtest provides a scriptable execx.Runner for tests.
package execxtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vidaudio/internal/execx"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// Handler reacts to a call; it may write files named in args to simulate a tool.
type Handler func(ctx context.Context, name string, args []string) ([]byte, error)

// Runner records every call and dispatches it to the handler registered for the
// binary name. Unknown binaries fail like a missing executable.
type Runner struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

func New() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// Handle registers h for the binary name.
func (r *Runner) Handle(name string, h Handler) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return r
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	h := r.handlers[name]
	r.mu.Unlock()

	if h == nil {
		return nil, &execx.CommandError{Name: name, Err: errors.New("executable file not found in $PATH")}
	}
	return h(ctx, name, args)
}

// Calls returns a copy of the recorded calls.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the calls made to the named binary.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Fail builds a handler returning a non-zero exit with the given stderr.
func Fail(stderr string) Handler {
	return func(ctx context.Context, name string, args []string) ([]byte, error) {
		return nil, &execx.CommandError{Name: name, Err: errors.New("exit status 1"), Stderr: stderr}
	}
}

// Output builds a handler that succeeds with stdout.
func Output(stdout string) Handler {
	return func(ctx context.Context, name string, args []string) ([]byte, error) {
		return []byte(stdout), nil
	}
}

// Joined renders args for substring assertions.
func (c Call) Joined() string { return strings.Join(c.Args, " ") }

// ArgAfter returns the argument following flag, or "".
func (c Call) ArgAfter(flag string) string {
	for i, a := range c.Args {
		if a == flag && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}
