package goerror

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "server", err: NewServer(errors.New("db down")), want: 1},
		{name: "invalid input", err: NewInvalidInput(nil, "username", "required"), want: 2},
		{name: "invalid format", err: NewInvalidFormat(), want: 2},
		{name: "unauthorized", err: NewBusiness("nope", CodeUnauthorized), want: 3},
		{name: "locked", err: NewBusiness("locked", CodeLocked), want: 4},
		{name: "conflict", err: NewBusiness("taken", CodeConflict), want: 5},
		{name: "wrapped", err: fmt.Errorf("ctx: %w", NewBusiness("locked", CodeLocked)), want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	// Arrange
	cause := errors.New("password authentication failed for user postgres")

	// Act & Assert
	if got := Message(NewServer(cause)); got != "Internal server error" {
		t.Fatalf("Message(server) = %q", got)
	}
	if got := Message(NewBusiness("Incorrect verification code.", CodeUnauthorized)); got != "Incorrect verification code." {
		t.Fatalf("Message(business) = %q", got)
	}
	if got := Message(errors.New("raw")); got != "Internal server error" {
		t.Fatalf("Message(plain) = %q", got)
	}
}

func TestNewInvalidInput_Fields(t *testing.T) {
	// Act
	err := NewInvalidInput(nil, "username", "is required", "code", "must be 6 digits")

	// Assert
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("not a *Error: %T", err)
	}
	if ge.Type() != TypeValidation || ge.Code() != CodeInvalidInput {
		t.Fatalf("Type() = %v, Code() = %v", ge.Type(), ge.Code())
	}
	if ge.Fields()["code"] != "must be 6 digits" || len(ge.Fields()) != 2 {
		t.Fatalf("Fields() = %v", ge.Fields())
	}
}

func TestError_Unwrap(t *testing.T) {
	// Arrange
	err := NewServer(ErrConflict)

	// Assert
	if !errors.Is(err, ErrConflict) {
		t.Fatal("errors.Is did not see the wrapped sentinel")
	}
}
