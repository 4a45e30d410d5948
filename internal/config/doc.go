// Package config loads, normalizes, and validates the outpost configuration.
// A single Config value is constructed at startup and handed to every
// component; no component reads the environment or config files on its own.
package config
