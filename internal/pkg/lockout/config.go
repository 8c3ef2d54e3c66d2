package lockout

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("lockout: invalid config")

// MinLaxCodes is the fewest consecutive codes that may lift a lockout.
const MinLaxCodes = 3

// Config holds the window sizes and the lockout threshold, all in ticks of
// 30 seconds except LaxCodes and Threshold.
type Config struct {
	NearTicks    int64
	NearbyTicks  int64
	DSTTicks     int64
	DSTTolerance int64
	LaxTicks     int64
	LaxCodes     int
	Threshold    int
}

// DefaultConfig returns ±90 s acceptance, a 5 minute drift band, a one hour
// DST band, about 25 hours of troubleshooting window, three recovery codes
// and lockout on the first wrong code.
func DefaultConfig() Config {
	return Config{
		NearTicks:    3,
		NearbyTicks:  10,
		DSTTicks:     120,
		DSTTolerance: 3,
		LaxTicks:     3000,
		LaxCodes:     3,
		Threshold:    1,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NearTicks == 0 {
		c.NearTicks = d.NearTicks
	}
	if c.NearbyTicks == 0 {
		c.NearbyTicks = d.NearbyTicks
	}
	if c.DSTTicks == 0 {
		c.DSTTicks = d.DSTTicks
	}
	if c.DSTTolerance == 0 {
		c.DSTTolerance = d.DSTTolerance
	}
	if c.LaxTicks == 0 {
		c.LaxTicks = d.LaxTicks
	}
	if c.LaxCodes == 0 {
		c.LaxCodes = d.LaxCodes
	}
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	return c
}

// Validate checks that the bands are ordered and do not overlap.
func (c Config) Validate() error {
	c = c.withDefaults()

	switch {
	case c.NearTicks < 0:
		return fmt.Errorf("%w: near ticks %d", ErrInvalidConfig, c.NearTicks)
	case c.NearbyTicks < c.NearTicks:
		return fmt.Errorf("%w: nearby ticks %d below near ticks %d", ErrInvalidConfig, c.NearbyTicks, c.NearTicks)
	case c.DSTTolerance < 0 || c.DSTTicks-c.DSTTolerance <= c.NearbyTicks:
		return fmt.Errorf("%w: dst band overlaps nearby band", ErrInvalidConfig)
	case c.LaxTicks < c.DSTTicks+c.DSTTolerance:
		return fmt.Errorf("%w: lax window %d narrower than routine window", ErrInvalidConfig, c.LaxTicks)
	case c.LaxCodes < MinLaxCodes:
		return fmt.Errorf("%w: lax codes %d", ErrInvalidConfig, c.LaxCodes)
	case c.Threshold < 1:
		return fmt.Errorf("%w: threshold %d", ErrInvalidConfig, c.Threshold)
	}

	return nil
}
