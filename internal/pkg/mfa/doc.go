// Package mfa seals second factor material at rest.
//
// Secrets are encrypted with AES-256-GCM and bound to the owning user and a
// purpose through the additional authenticated data, so a ciphertext copied
// to another user row fails to open.
package mfa
