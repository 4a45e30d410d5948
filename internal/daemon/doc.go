// Package daemon wires the intake, capture and sync components into one
// long-running process with a small local ops API.
package daemon
