package config

import (
	"io"
	"time"
)

// Config is the read side of the application configuration. Getters return
// the zero value for missing or unconvertible keys.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64

	// GetMillisecond reads an integer number of milliseconds.
	GetMillisecond(key string) time.Duration
	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte
	// GetArray reads a comma separated list. Blank entries are dropped.
	GetArray(key string) []string
}
