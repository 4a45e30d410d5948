// Command outpost is the operator CLI for the outpost daemon: status,
// manual sweeps, sync ledger inspection, capture checks, and config helpers.
package main
