package lockout

import (
	"crypto/subtle"

	"github.com/samber/lo"

	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

// Policy implements the verification rules. It is safe for concurrent use.
type Policy struct {
	cfg    Config
	engine otp.CodeGenerator
	clock  clock.Clocker

	// routine and lax hold the signed deltas in search order.
	routine []int64
	lax     []int64
}

// NewPolicy builds a policy; zero Config fields take DefaultConfig values.
func NewPolicy(cfg Config, engine otp.CodeGenerator, clk clock.Clocker) *Policy {
	cfg = cfg.withDefaults()

	routineMagnitudes := append(
		lo.RangeFrom(int64(0), int(cfg.NearbyTicks)+1),
		lo.RangeFrom(cfg.DSTTicks-cfg.DSTTolerance, int(2*cfg.DSTTolerance)+1)...,
	)

	return &Policy{
		cfg:     cfg,
		engine:  engine,
		clock:   clk,
		routine: zigzag(routineMagnitudes),
		lax:     zigzag(lo.RangeFrom(int64(0), int(cfg.LaxTicks)+1)),
	}
}

// zigzag expands magnitudes m into +m, -m pairs, emitting zero once.
func zigzag(magnitudes []int64) []int64 {
	return lo.FlatMap(magnitudes, func(m int64, _ int) []int64 {
		if m == 0 {
			return []int64{0}
		}
		return []int64{m, -m}
	})
}

// Config returns the effective configuration.
func (p *Policy) Config() Config {
	return p.cfg
}

// Check classifies code against secret without touching any lockout state.
// Enrolment uses it before a user exists.
func (p *Policy) Check(secret otp.Secret, code string, lastTick int64) Result {
	if !validCode(code) {
		return Result{Outcome: InvalidInput, State: State{LastTick: lastTick}}
	}

	now := otp.TickAt(p.clock.Now())
	res := p.classify(secret, code, now, lastTick)
	if !res.matched {
		res.Outcome = CodeVerificationFailure
	}
	res.State = State{LastTick: lastTick}
	if res.Outcome == Success {
		res.State.LastTick = res.Tick
		res.changed = true
	}

	return res
}

// Verify runs the routine single code path.
func (p *Policy) Verify(secret otp.Secret, code string, state State) Result {
	if !validCode(code) {
		return Result{Outcome: InvalidInput, State: state}
	}

	now := otp.TickAt(p.clock.Now())
	res := p.classify(secret, code, now, state.LastTick)

	if state.LockedOut {
		// The search above still runs so a locked account answers in about
		// the same time as an active one.
		return Result{Outcome: AlreadyLockedOut, State: state}
	}

	res.State = state
	switch {
	case !res.matched:
		res.State.Failures++
		res.Outcome = CodeVerificationFailure
		if res.State.Failures >= p.cfg.Threshold {
			res.State.LockedOut = true
			res.Outcome = NowLockedOut
		}
	case res.Outcome == Success:
		res.State.LastTick = res.Tick
		res.State.Failures = 0
	}
	res.changed = res.State != state

	return res
}

// classify searches the routine window. An unmatched code comes back with
// matched unset and the zero Outcome.
func (p *Policy) classify(secret otp.Secret, code string, now, lastTick int64) Result {
	tick, delta, ok := p.search(secret, code, now)
	if !ok {
		return Result{}
	}

	res := Result{Tick: tick, Skew: delta, matched: true}
	switch {
	case tick <= lastTick:
		res.Outcome = CodeAlreadyUsed
	case abs(delta) > p.cfg.NearbyTicks:
		res.Outcome = ClockMismatch
		res.Mismatch = MismatchDST
	case abs(delta) > p.cfg.NearTicks:
		res.Outcome = ClockMismatch
		res.Mismatch = MismatchNearby
	default:
		res.Outcome = Success
	}

	return res
}

// CancelLockout is the troubleshooting path. It needs at least LaxCodes
// codes from consecutive ticks, all newer than state.LastTick, following the
// nearest tick whose code is the first one. Failure never changes the state,
// so it cannot lock an account either.
func (p *Policy) CancelLockout(secret otp.Secret, codes []string, state State) Result {
	if len(codes) < p.cfg.LaxCodes || !lo.EveryBy(codes, validCode) {
		return Result{Outcome: InvalidInput, State: state}
	}

	now := otp.TickAt(p.clock.Now())
	first, rest := codes[0], codes[1:]

	for _, delta := range p.lax {
		tick := now + delta
		if tick <= state.LastTick || !p.matches(secret, first, tick) {
			continue
		}
		// The first match anchors the chain; a recurrence of the first
		// code further out is not searched.
		if !p.chainMatches(secret, rest, tick) {
			break
		}

		last := tick + int64(len(rest))
		next := State{LastTick: last}
		return Result{
			Outcome: Success,
			Tick:    last,
			Skew:    delta,
			State:   next,
			matched: true,
			changed: next != state,
		}
	}

	return Result{Outcome: CodeVerificationFailure, State: state}
}

// chainMatches reports whether codes[i] is the code of tick+1+i for every i.
func (p *Policy) chainMatches(secret otp.Secret, codes []string, tick int64) bool {
	for i, code := range codes {
		if !p.matches(secret, code, tick+1+int64(i)) {
			return false
		}
	}
	return true
}

// search returns the first tick of the routine window whose code is code.
func (p *Policy) search(secret otp.Secret, code string, now int64) (int64, int64, bool) {
	for _, delta := range p.routine {
		tick := now + delta
		if p.matches(secret, code, tick) {
			return tick, delta, true
		}
	}
	return 0, 0, false
}

func (p *Policy) matches(secret otp.Secret, code string, tick int64) bool {
	want, err := p.engine.CodeAt(secret, tick)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1
}

// validCode reports whether code is exactly six ASCII digits.
func validCode(code string) bool {
	if len(code) != otp.Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
