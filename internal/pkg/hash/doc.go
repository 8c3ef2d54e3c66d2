// Package hash implements the bcrypt password record used by the identity
// module.
//
// A record is the classic 60 character `$2a$NN$<salt><hash>` string. The
// package owns the framing (custom base64, cost and salt layout) and runs the
// expensive blowfish key schedule from golang.org/x/crypto/blowfish, so
// records produced here verify with any conforming bcrypt implementation.
package hash
