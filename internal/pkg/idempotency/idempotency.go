// Package idempotency makes at-least-once message handlers run once per key,
// using Redis SETNX as the claim.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrInProgress means another worker holds the claim.
	ErrInProgress = errors.New("idempotency: operation in progress")
	// ErrCompleted means the key was already processed.
	ErrCompleted = errors.New("idempotency: operation completed")
	// ErrInvalidState means the stored value is not one this package writes.
	ErrInvalidState = errors.New("idempotency: invalid state")
)

// State is the stored status of a key.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

func (s State) String() string {
	return string(s)
}

// Idempotency guards a function by key.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// Redis implements Idempotency on any go-redis client.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// New returns a Redis guard with keys prefixed by "idempotency:".
func New(client redis.Cmdable) *Redis {
	return &Redis{client: client, prefix: "idempotency:"}
}

const (
	defaultLockDuration = time.Minute
	defaultDoneTTL      = 24 * time.Hour
)

// Option tunes Exec.
type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	doneTTL      time.Duration
}

// WithLockDuration bounds how long a crashed worker can hold a claim.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) { o.lockDuration = d }
}

// WithDoneTTL sets how long a completed key is remembered.
func WithDoneTTL(d time.Duration) Option {
	return func(o *execOptions) { o.doneTTL = d }
}

// Acquire claims key. It returns StateNone when the caller now owns it.
func (r *Redis) Acquire(ctx context.Context, key string, lock time.Duration) (State, error) {
	k := r.prefix + key

	ok, err := r.client.SetNX(ctx, k, StateInProgress.String(), lock).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return StateNone, nil
	}

	val, err := r.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return r.Acquire(ctx, key, lock)
	}
	if err != nil {
		return "", err
	}

	switch State(val) {
	case StateInProgress, StateCompleted:
		return State(val), nil
	default:
		return "", ErrInvalidState
	}
}

// Release drops the claim so a redelivery can retry.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// MarkCompleted records key as done for ttl.
func (r *Redis) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, StateCompleted.String(), ttl).Err()
}

// Exec runs fn once per key. A failing fn releases the claim and its error
// is returned; a repeat of a completed key returns ErrCompleted.
func (r *Redis) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := execOptions{lockDuration: defaultLockDuration, doneTTL: defaultDoneTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.doneTTL <= 0 {
		o.doneTTL = defaultDoneTTL
	}

	state, err := r.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}
	switch state {
	case StateInProgress:
		return ErrInProgress
	case StateCompleted:
		return ErrCompleted
	}

	if err := fn(ctx); err != nil {
		if relErr := r.Release(ctx, key); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}

	return r.MarkCompleted(ctx, key, o.doneTTL)
}
