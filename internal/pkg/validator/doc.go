// Package validator checks usecase inputs against struct tags.
//
// Besides the stock go-playground rules it registers:
//
//	password  8 to 72 characters (bcrypt reads at most 72 bytes)
//	username  3 to 64 of [A-Za-z0-9._-]
//	totpcode  exactly 6 ASCII digits
package validator
