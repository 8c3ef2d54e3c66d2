// Package otp computes 30 second, 6 digit, HMAC-SHA1 time based codes.
//
// Secrets are 16 base32 symbols (80 bits). The package performs no clock
// reads and holds no randomness: callers pass the tick and the sampler.
package otp
