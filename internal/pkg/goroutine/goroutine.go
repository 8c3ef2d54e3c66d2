// Package goroutine runs background tasks with a concurrency cap, panic
// recovery and a single Wait that joins their errors.
package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/totpguard/internal/pkg/stacktrace"
)

// DefaultPerCPU is multiplied by runtime.NumCPU when NewManager gets a
// non-positive limit.
const DefaultPerCPU = 100

// ErrPanic wraps a recovered panic value.
var ErrPanic = errors.New("goroutine: panic")

// Manager schedules tasks. After Wait it refuses new work.
type Manager struct {
	wg   sync.WaitGroup
	sema chan struct{}

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager creates a Manager running at most limit tasks at once.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = runtime.NumCPU() * DefaultPerCPU
	}

	return &Manager{sema: make(chan struct{}, limit)}
}

// Go starts f unless the manager is closed or full. It reports whether f was
// scheduled.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		slog.WarnContext(ctx, "goroutine manager closed, task dropped")
		return false
	}

	select {
	case m.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "goroutine limit reached, task dropped", "limit", cap(m.sema))
		return false
	}

	m.wg.Add(1)
	go m.run(ctx, f)

	return true
}

func (m *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	defer m.wg.Done()
	defer func() { <-m.sema }()
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in goroutine", "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in goroutine", "panic", rvr, "stack", string(stack))
			}
			m.record(errors.Join(ErrPanic, panicError(rvr)))
		}
	}()

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "goroutine canceled before start", "error", err)
		return
	}

	if err := f(ctx); err != nil {
		m.record(err)
	}
}

func (m *Manager) record(err error) {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
}

// Wait closes the manager, blocks until every task returned and joins
// their errors.
func (m *Manager) Wait() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}

type panicValue struct{ v any }

func (p panicValue) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	if s, ok := p.v.(string); ok {
		return s
	}
	return "non-error panic value"
}

func panicError(v any) error {
	return panicValue{v: v}
}
