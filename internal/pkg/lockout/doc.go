// Package lockout decides whether a submitted TOTP code signs a user in.
//
// A Policy searches a window of ticks around the server clock, refuses
// ticks that were already accepted, tells clock drift apart from a wrong
// code, and drives the Active/LockedOut state machine. It never persists
// anything: every call returns the State the caller has to write back.
//
// Search order is nearest first: deltas 0, +1, -1, +2, -2 and so on. Only
// three bands are searched:
//
//	|delta| <= NearTicks                        accepted
//	NearTicks < |delta| <= NearbyTicks          clock mismatch, minutes
//	|delta - DSTTicks| <= DSTTolerance          clock mismatch, one hour
//
// A locked out account can only be recovered through CancelLockout, which
// wants LaxCodes consecutive codes and searches a much wider window.
package lockout
