package app

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	auditentity "github.com/shandysiswandi/totpguard/internal/audit/entity"
	auditusecase "github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/hash"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
)

type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (p *scriptedPrompter) next(label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", goerror.NewInvalidFormat("input ended")
	}
	s := p.answers[0]
	p.answers = p.answers[1:]
	return s, nil
}

func (p *scriptedPrompter) Line(label string) (string, error)   { return p.next(label) }
func (p *scriptedPrompter) Secret(label string) (string, error) { return p.next(label) }

type fakeIdentity struct {
	secret otp.Secret

	signup       usecase.SignupInput
	signupErr    error
	loginErr     error
	verification entity.Verification
	codes        []string
	reenroll     usecase.ReEnrollInput
}

func (f *fakeIdentity) StartEnrollment(_ context.Context, in usecase.StartEnrollmentInput) (*usecase.StartEnrollmentOutput, error) {
	return &usecase.StartEnrollmentOutput{Secret: f.secret, URI: otp.ProvisioningURI(in.Username, "totpguard", f.secret)}, nil
}

func (f *fakeIdentity) Signup(_ context.Context, in usecase.SignupInput) (*usecase.SignupOutput, error) {
	f.signup = in
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &usecase.SignupOutput{UserID: 1001}, nil
}

func (f *fakeIdentity) Login(context.Context, usecase.LoginInput) (*usecase.LoginOutput, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &usecase.LoginOutput{UserID: 7, TOTPRequired: true}, nil
}

func (f *fakeIdentity) ConfirmLogin(context.Context, usecase.ConfirmLoginInput) (*entity.Verification, error) {
	v := f.verification
	return &v, nil
}

func (f *fakeIdentity) Troubleshoot(_ context.Context, in usecase.TroubleshootInput) (*entity.Verification, error) {
	f.codes = in.Codes
	v := f.verification
	return &v, nil
}

func (f *fakeIdentity) StartReEnrollment(_ context.Context, in usecase.StartReEnrollmentInput) (*usecase.StartEnrollmentOutput, error) {
	return &usecase.StartEnrollmentOutput{Secret: f.secret, URI: otp.ProvisioningURI(in.Username, "totpguard", f.secret)}, nil
}

func (f *fakeIdentity) ReEnroll(_ context.Context, in usecase.ReEnrollInput) (*usecase.ReEnrollOutput, error) {
	f.reenroll = in
	return &usecase.ReEnrollOutput{UserID: 7}, nil
}

type fakeAudit struct {
	events []auditentity.SecurityEvent
	got    auditusecase.ListEventsInput
}

func (f *fakeAudit) ListEvents(_ context.Context, in auditusecase.ListEventsInput) ([]auditentity.SecurityEvent, error) {
	f.got = in
	return f.events, nil
}

const testYAML = `
hash:
  bcrypt:
    cost: 4
`

func newTestApp(t *testing.T, answers ...string) (*App, *bytes.Buffer, *bytes.Buffer, *fakeIdentity, *fakeAudit) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testYAML))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	secret, err := otp.ParseSecret("abcdefghijklmnop")
	if err != nil {
		t.Fatalf("ParseSecret() error = %v", err)
	}

	clk := clock.NewManual(otp.TickStart(56666666).Add(5 * time.Second))
	totp := otp.NewTOTP()
	id := &fakeIdentity{secret: secret, verification: entity.Verification{UserID: 7, Outcome: lockout.Success}}
	au := &fakeAudit{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

	a := &App{
		ctx:       context.Background(),
		config:    cfg,
		ins:       instrument.NewNoop(),
		goroutine: goroutine.NewManager(4),
		clock:     clk,
		random:    random.New(),
		totp:      totp,
		policy:    lockout.NewPolicy(lockout.DefaultConfig(), totp, clk),
		ready:     true,
		identity:  id,
		audit:     au,
		stdout:    stdout,
		stderr:    stderr,
		prompt:    &scriptedPrompter{answers: answers},
	}
	a.initClosers()

	return a, stdout, stderr, id, au
}

func TestApp_Run_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "no command", args: nil, wantCode: 2, wantStderr: "usage: totpguard"},
		{name: "help", args: []string{"help"}, wantCode: 0, wantStdout: "troubleshoot"},
		{name: "unknown command", args: []string{"frobnicate"}, wantCode: 2, wantStderr: `unknown command "frobnicate"`},
		{name: "bad flag", args: []string{"login", "-nope"}, wantCode: 2},
		{name: "missing user", args: []string{"login"}, wantCode: 2, wantStderr: "user: user is required"},
		{name: "stray argument", args: []string{"events", "-user", "alice", "extra"}, wantCode: 2, wantStderr: `unexpected argument "extra"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a, stdout, stderr, _, _ := newTestApp(t)

			// Act
			code := a.Run(tt.args)

			// Assert
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Fatalf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestApp_Enroll(t *testing.T) {
	t.Run("creates the account and writes a QR code", func(t *testing.T) {
		// Arrange
		a, stdout, stderr, id, _ := newTestApp(t, "correct horse", "correct horse", "541083")
		qrPath := filepath.Join(t.TempDir(), "qr.png")

		// Act
		code := a.Run([]string{"enroll", "-user", "bob", "-qr", qrPath})

		// Assert
		if code != 0 {
			t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
		}
		if id.signup.Username != "bob" || id.signup.Password != "correct horse" || id.signup.Secret != "abcdefghijklmnop" || id.signup.Code != "541083" {
			t.Fatalf("signup = %+v", id.signup)
		}
		if !strings.Contains(stdout.String(), "otpauth://totp/totpguard:bob?secret=abcdefghijklmnop") {
			t.Fatalf("stdout = %q", stdout.String())
		}
		if !strings.Contains(stdout.String(), "Account bob created (id 1001).") {
			t.Fatalf("stdout = %q", stdout.String())
		}

		f, err := os.Open(qrPath)
		if err != nil {
			t.Fatalf("open qr: %v", err)
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			t.Fatalf("decode qr: %v", err)
		}
		if img.Bounds().Dx() != qrSize {
			t.Fatalf("qr width = %d", img.Bounds().Dx())
		}
	})
	t.Run("password confirmation mismatch", func(t *testing.T) {
		// Arrange
		a, _, stderr, id, _ := newTestApp(t, "correct horse", "wrong horse")

		// Act
		code := a.Run([]string{"enroll", "-user", "bob"})

		// Assert
		if code != 2 {
			t.Fatalf("exit code = %d, want 2", code)
		}
		if id.signup.Username != "" {
			t.Fatal("signup was called")
		}
		if !strings.Contains(stderr.String(), "passwords do not match") {
			t.Fatalf("stderr = %q", stderr.String())
		}
	})
	t.Run("clock mismatch on first code", func(t *testing.T) {
		// Arrange
		a, _, stderr, id, _ := newTestApp(t, "correct horse", "correct horse", "123456")
		id.signupErr = goerror.NewBusiness(entity.MsgSetupClockMismatch+"3 minutes ahead.", goerror.CodeUnauthorized)

		// Act
		code := a.Run([]string{"enroll", "-user", "bob"})

		// Assert
		if code != 3 {
			t.Fatalf("exit code = %d, want 3", code)
		}
		if !strings.Contains(stderr.String(), "It is off by: 3 minutes ahead.") {
			t.Fatalf("stderr = %q", stderr.String())
		}
	})
}

func TestApp_Login(t *testing.T) {
	tests := []struct {
		name         string
		verification entity.Verification
		loginErr     error
		wantCode     int
		wantStdout   string
		wantStderr   string
	}{
		{
			name:         "success",
			verification: entity.Verification{Outcome: lockout.Success},
			wantStdout:   "Login successful.",
		},
		{
			name:       "bad password",
			loginErr:   goerror.NewBusiness(entity.MsgInvalidLogin, goerror.CodeUnauthorized),
			wantCode:   3,
			wantStderr: entity.MsgInvalidLogin,
		},
		{
			name:         "wrong code locks the account",
			verification: entity.Verification{Outcome: lockout.NowLockedOut, Message: entity.MsgNowLockedOut, Hopeless: true},
			wantCode:     4,
			wantStderr:   entity.MsgNowLockedOut,
		},
		{
			name:         "clock drift",
			verification: entity.Verification{Outcome: lockout.ClockMismatch, Mismatch: lockout.MismatchDST, Message: entity.MsgClockMismatchDST},
			wantCode:     3,
			wantStderr:   "off by an hour",
		},
		{
			name:         "malformed code",
			verification: entity.Verification{Outcome: lockout.InvalidInput, Message: entity.MsgInvalidInput},
			wantCode:     2,
			wantStderr:   entity.MsgInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a, stdout, stderr, id, _ := newTestApp(t, "correct horse", "541083")
			id.verification = tt.verification
			id.loginErr = tt.loginErr

			// Act
			code := a.Run([]string{"login", "-user", "alice"})

			// Assert
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Fatalf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestApp_Troubleshoot(t *testing.T) {
	// Arrange
	a, stdout, stderr, id, _ := newTestApp(t, "111111", "222222", "333333")
	id.verification = entity.Verification{Outcome: lockout.Success, Message: entity.MsgLockoutCleared}
	prompt := a.prompt.(*scriptedPrompter)

	// Act
	code := a.Run([]string{"troubleshoot", "-user", "alice"})

	// Assert
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
	}
	if strings.Join(id.codes, ",") != "111111,222222,333333" {
		t.Fatalf("codes = %v", id.codes)
	}
	if len(prompt.labels) != 3 || prompt.labels[2] != "Code 3 of 3: " {
		t.Fatalf("labels = %q", prompt.labels)
	}
	if !strings.Contains(stdout.String(), entity.MsgLockoutCleared) {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestApp_ReEnroll(t *testing.T) {
	// Arrange
	a, stdout, stderr, id, _ := newTestApp(t, "correct horse", "123456", "541083")
	prompt := a.prompt.(*scriptedPrompter)

	// Act
	code := a.Run([]string{"reenroll", "-user", "alice"})

	// Assert
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
	}
	want := usecase.ReEnrollInput{
		Username: "alice", Password: "correct horse", CurrentCode: "123456",
		Secret: "abcdefghijklmnop", Code: "541083",
	}
	if id.reenroll != want {
		t.Fatalf("reenroll = %+v", id.reenroll)
	}
	if len(prompt.labels) != 3 || prompt.labels[1] != "Code from your current device: " {
		t.Fatalf("labels = %q", prompt.labels)
	}
	if !strings.Contains(stdout.String(), "Authenticator replaced for alice.") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestApp_Events(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		// Arrange
		a, stdout, _, _, au := newTestApp(t)
		au.events = []auditentity.SecurityEvent{
			{Kind: auditentity.KindLockoutCleared, Tick: 56666670, CorrelationID: "c-2", OccurredAt: time.Date(2023, 11, 14, 23, 0, 0, 0, time.UTC)},
			{Kind: auditentity.KindLockedOut, Tick: 56666666, CorrelationID: "c-1", OccurredAt: time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)},
		}

		// Act
		code := a.Run([]string{"events", "-user", "alice", "-limit", "5"})

		// Assert
		if code != 0 {
			t.Fatalf("exit code = %d", code)
		}
		if au.got.Username != "alice" || au.got.Limit != 5 {
			t.Fatalf("input = %+v", au.got)
		}
		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[0], "OCCURRED AT") {
			t.Fatalf("stdout = %q", stdout.String())
		}
		if !strings.Contains(lines[1], "2023-11-14T23:00:00Z") || !strings.Contains(lines[1], "totp.lockout_cleared") {
			t.Fatalf("first row = %q", lines[1])
		}
	})
	t.Run("empty", func(t *testing.T) {
		// Arrange
		a, stdout, _, _, _ := newTestApp(t)

		// Act
		code := a.Run([]string{"events", "-user", "alice"})

		// Assert
		if code != 0 || !strings.Contains(stdout.String(), "No security events for alice.") {
			t.Fatalf("exit code = %d, stdout %q", code, stdout.String())
		}
	})
}

func TestApp_Worker_Disabled(t *testing.T) {
	// Arrange
	a, _, stderr, _, _ := newTestApp(t)

	// Act
	code := a.Run([]string{"worker"})

	// Assert
	if code != 2 || !strings.Contains(stderr.String(), "audit module is disabled") {
		t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
	}
}

func TestApp_Worker_NoConsumers(t *testing.T) {
	// Arrange
	a, _, stderr, _, _ := newTestApp(t)
	a.startConsumers = func(context.Context) int { return 0 }

	// Act
	code := a.Run([]string{"worker"})

	// Assert
	if code != 2 || !strings.Contains(stderr.String(), "no audit consumers enabled") {
		t.Fatalf("exit code = %d, stderr %q", code, stderr.String())
	}
}

func TestApp_Code(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{name: "clock now", args: []string{"code", "-secret", "abcdefghijklmnop"}, want: "541083 (tick 56666666, valid until 2023-11-14T22:13:30Z)"},
		{name: "explicit time", args: []string{"code", "-secret", "abcdefghijklmnop", "-at", "1970-01-01T00:00:31Z"}, want: "317963 (tick 1,"},
		{name: "bad secret", args: []string{"code", "-secret", "short"}, wantCode: 2},
		{name: "bad time", args: []string{"code", "-secret", "abcdefghijklmnop", "-at", "yesterday"}, wantCode: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a, stdout, _, _, _ := newTestApp(t)

			// Act
			code := a.Run(tt.args)

			// Assert
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Fatalf("stdout = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestApp_HashPassword(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		answer   string
		wantCode int
	}{
		{name: "configured cost", args: []string{"hash-password"}, answer: "correct horse"},
		{name: "explicit cost", args: []string{"hash-password", "-cost", "5"}, answer: "correct horse"},
		{name: "cost out of range", args: []string{"hash-password", "-cost", "2"}, answer: "correct horse", wantCode: 2},
		{name: "empty password", args: []string{"hash-password"}, answer: "", wantCode: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a, stdout, _, _, _ := newTestApp(t, tt.answer)

			// Act
			code := a.Run(tt.args)

			// Assert
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d", code, tt.wantCode)
			}
			if tt.wantCode != 0 {
				return
			}
			record := strings.TrimSpace(stdout.String())
			ok, err := hash.VerifyPassword(record, []byte(tt.answer))
			if err != nil || !ok {
				t.Fatalf("VerifyPassword(%q) = %v, %v", record, ok, err)
			}
		})
	}
}

func TestApp_Stop(t *testing.T) {
	// Arrange
	a, _, _, _, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	ran := make(chan struct{})
	a.goroutine.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		close(ran)
		return nil
	})

	// Act
	a.Stop(context.Background())

	// Assert
	select {
	case <-ran:
	default:
		t.Fatal("background routine still running after Stop")
	}
}
