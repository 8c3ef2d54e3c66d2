package lockout

// Outcome classifies one verification.
type Outcome int

const (
	InvalidInput Outcome = iota
	Success
	AlreadyLockedOut
	NowLockedOut
	ClockMismatch
	CodeVerificationFailure
	CodeAlreadyUsed
)

var outcomeNames = [...]string{
	InvalidInput:            "invalid_input",
	Success:                 "success",
	AlreadyLockedOut:        "already_locked_out",
	NowLockedOut:            "now_locked_out",
	ClockMismatch:           "clock_mismatch",
	CodeVerificationFailure: "code_verification_failure",
	CodeAlreadyUsed:         "code_already_used",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Mismatch says which drift band a ClockMismatch fell into.
type Mismatch int

const (
	MismatchNone Mismatch = iota
	MismatchNearby
	MismatchDST
)

func (m Mismatch) String() string {
	switch m {
	case MismatchNearby:
		return "nearby"
	case MismatchDST:
		return "dst"
	default:
		return "none"
	}
}

// State is the per user verification state the caller persists.
type State struct {
	LastTick  int64
	Failures  int
	LockedOut bool
}

// Result is the decision for one call.
type Result struct {
	Outcome Outcome
	// Tick is the matched tick. For CancelLockout it is the tick of the
	// last code.
	Tick int64
	// Skew is the matched tick minus the server tick.
	Skew     int64
	Mismatch Mismatch
	// State is what the caller stores afterwards.
	State State

	matched bool
	changed bool
}

// Matched reports whether some tick in the window produced the code.
func (r Result) Matched() bool {
	return r.matched
}

// Changed reports whether State differs from the state passed in.
func (r Result) Changed() bool {
	return r.changed
}
