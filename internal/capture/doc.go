// Package capture records short video clips by driving external camera
// tools. Backends are tried in a configured order until one produces a
// non-empty artifact; see Chain.
package capture
