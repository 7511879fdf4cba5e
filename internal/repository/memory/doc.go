// Package memory holds process-local implementations of the account and
// refresh token ports. State is lost on restart; use it for tests and local runs.
package memory
