package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManager_GoAndWait(t *testing.T) {
	// Arrange
	m := NewManager(4)
	var ran atomic.Int32
	boom := errors.New("boom")

	// Act
	for i := range 3 {
		m.Go(context.Background(), func(context.Context) error {
			ran.Add(1)
			if i == 1 {
				return boom
			}
			return nil
		})
	}
	err := m.Wait()

	// Assert
	if ran.Load() != 3 {
		t.Fatalf("ran = %d, want 3", ran.Load())
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want %v", err, boom)
	}
}

func TestManager_RecoversPanic(t *testing.T) {
	// Arrange
	m := NewManager(1)

	// Act
	m.Go(context.Background(), func(context.Context) error {
		panic("kaboom")
	})
	err := m.Wait()

	// Assert
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("Wait() error = %v, want ErrPanic", err)
	}
}

func TestManager_RejectsAfterWait(t *testing.T) {
	// Arrange
	m := NewManager(1)
	_ = m.Wait()

	// Act
	ok := m.Go(context.Background(), func(context.Context) error { return nil })

	// Assert
	if ok {
		t.Fatal("Go() scheduled work on a closed manager")
	}
}

func TestManager_LimitReached(t *testing.T) {
	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})
	m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	// Act
	ok := m.Go(context.Background(), func(context.Context) error { return nil })
	close(release)

	// Assert
	if ok {
		t.Fatal("Go() exceeded the limit")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestManager_CanceledContext(t *testing.T) {
	// Arrange
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool

	// Act
	m.Go(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	_ = m.Wait()

	// Assert
	if ran.Load() {
		t.Fatal("task ran on a canceled context")
	}
}
