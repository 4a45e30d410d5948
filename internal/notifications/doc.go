// Package notifications pushes operational alerts to an ntfy topic. With no
// topic configured every call is a no-op, so callers never guard sends.
package notifications
