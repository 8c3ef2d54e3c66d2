// Package random is the single source of randomness for the module.
//
// OTP secrets and bcrypt salts are drawn from here so the pure packages
// (hash, otp, lockout) stay deterministic under test.
package random
