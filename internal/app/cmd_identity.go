package app

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

const qrSize = 256

var errIdentityDisabled = goerror.NewBusiness("the identity module is disabled", goerror.CodeInvalidInput)

func (a *App) cmdEnroll(ctx context.Context, args []string) error {
	fs := a.newFlagSet("enroll")
	user := fs.String("user", "", "account name")
	qr := fs.String("qr", "", "write the provisioning QR code to this PNG file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	if a.identity == nil {
		return errIdentityDisabled
	}

	start, err := a.identity.StartEnrollment(ctx, usecase.StartEnrollmentInput{Username: *user})
	if err != nil {
		return err
	}
	if err := a.showProvisioning(start, *qr); err != nil {
		return err
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}
	code, err := a.prompt.Line("Verification code: ")
	if err != nil {
		return err
	}

	out, err := a.identity.Signup(ctx, usecase.SignupInput{
		Username: *user,
		Password: password,
		Secret:   start.Secret.String(),
		Code:     code,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Account %s created (id %d).\n", *user, out.UserID)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := a.newFlagSet("login")
	user := fs.String("user", "", "account name")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	if a.identity == nil {
		return errIdentityDisabled
	}

	password, err := a.prompt.Secret("Password: ")
	if err != nil {
		return err
	}
	if _, err := a.identity.Login(ctx, usecase.LoginInput{Username: *user, Password: password}); err != nil {
		return err
	}

	code, err := a.prompt.Line("Verification code: ")
	if err != nil {
		return err
	}
	v, err := a.identity.ConfirmLogin(ctx, usecase.ConfirmLoginInput{Username: *user, Code: code})
	if err != nil {
		return err
	}

	return a.report(v, "Login successful.")
}

func (a *App) cmdTroubleshoot(ctx context.Context, args []string) error {
	defaultCodes := 3
	if a.policy != nil {
		defaultCodes = a.policy.Config().LaxCodes
	}

	fs := a.newFlagSet("troubleshoot")
	user := fs.String("user", "", "account name")
	n := fs.Int("codes", defaultCodes, "number of consecutive codes to ask for")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	if *n < 1 {
		return goerror.NewInvalidInput(nil, "codes", "codes must be at least 1")
	}
	if a.identity == nil {
		return errIdentityDisabled
	}

	fmt.Fprintf(a.stdout, "Enter %d consecutive codes from your device, waiting for each new one.\n", *n)
	codes := make([]string, 0, *n)
	for i := range *n {
		c, err := a.prompt.Line("Code " + strconv.Itoa(i+1) + " of " + strconv.Itoa(*n) + ": ")
		if err != nil {
			return err
		}
		codes = append(codes, c)
	}

	v, err := a.identity.Troubleshoot(ctx, usecase.TroubleshootInput{Username: *user, Codes: codes})
	if err != nil {
		return err
	}

	return a.report(v, "Verification codes accepted.")
}

func (a *App) cmdReEnroll(ctx context.Context, args []string) error {
	fs := a.newFlagSet("reenroll")
	user := fs.String("user", "", "account name")
	qr := fs.String("qr", "", "write the provisioning QR code to this PNG file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	if a.identity == nil {
		return errIdentityDisabled
	}

	start, err := a.identity.StartReEnrollment(ctx, usecase.StartReEnrollmentInput{Username: *user})
	if err != nil {
		return err
	}
	if err := a.showProvisioning(start, *qr); err != nil {
		return err
	}

	password, err := a.prompt.Secret("Password: ")
	if err != nil {
		return err
	}
	current, err := a.prompt.Line("Code from your current device: ")
	if err != nil {
		return err
	}
	code, err := a.prompt.Line("Code from your new device: ")
	if err != nil {
		return err
	}

	if _, err := a.identity.ReEnroll(ctx, usecase.ReEnrollInput{
		Username:    *user,
		Password:    password,
		CurrentCode: current,
		Secret:      start.Secret.String(),
		Code:        code,
	}); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Authenticator replaced for %s.\n", *user)
	return nil
}

func (a *App) newPassword() (string, error) {
	password, err := a.prompt.Secret("Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := a.prompt.Secret("Repeat password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", goerror.NewInvalidInput(nil, "password", "passwords do not match")
	}
	return password, nil
}

func (a *App) showProvisioning(start *usecase.StartEnrollmentOutput, qrPath string) error {
	fmt.Fprintln(a.stdout, "Add this account to your authenticator app.")
	fmt.Fprintf(a.stdout, "Secret: %s\n", start.Secret.String())
	fmt.Fprintf(a.stdout, "URI:    %s\n", start.URI)

	if qrPath == "" {
		return nil
	}
	if err := writeQRCode(qrPath, start.URI); err != nil {
		return goerror.NewServer(err)
	}
	fmt.Fprintf(a.stdout, "QR code written to %s\n", qrPath)
	return nil
}

func writeQRCode(path, uri string) error {
	img, err := otp.QRCode(uri, qrSize)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// report prints an accepted verification or turns a rejected one into an
// error whose code drives the exit status.
func (a *App) report(v *entity.Verification, success string) error {
	if v.Succeeded() {
		fmt.Fprintln(a.stdout, lo.Ternary(v.Message != "", v.Message, success))
		return nil
	}

	code := goerror.CodeUnauthorized
	switch v.Outcome {
	case lockout.AlreadyLockedOut, lockout.NowLockedOut:
		code = goerror.CodeLocked
	case lockout.InvalidInput:
		code = goerror.CodeInvalidInput
	}

	return goerror.NewBusiness(v.Message, code)
}
