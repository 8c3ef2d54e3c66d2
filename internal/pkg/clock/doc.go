// Package clock isolates wall clock reads.
//
// Code that derives TOTP ticks takes a Clocker so tests can pin the instant
// and step across tick boundaries.
package clock
