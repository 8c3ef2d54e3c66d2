package otp

import (
	"image"
	"net/url"
	"strings"

	"github.com/pquerna/otp"
)

// ProvisioningURI builds the otpauth URI authenticator apps import.
//
//	otpauth://totp/<issuer>:<username>?secret=<secret>&issuer=<issuer>
//
// Both components are form escaped with spaces as %20.
func ProvisioningURI(username, issuer string, secret Secret) string {
	i := escapeComponent(issuer)

	var sb strings.Builder
	sb.WriteString("otpauth://totp/")
	sb.WriteString(i)
	sb.WriteByte(':')
	sb.WriteString(escapeComponent(username))
	sb.WriteString("?secret=")
	sb.WriteString(secret.String())
	sb.WriteString("&issuer=")
	sb.WriteString(i)

	return sb.String()
}

var componentReplacer = strings.NewReplacer("+", "%20", "%2A", "*", "~", "%7E")

func escapeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}

// QRCode renders uri as a square QR image.
func QRCode(uri string, size int) (image.Image, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, err
	}

	return key.Image(size, size)
}
