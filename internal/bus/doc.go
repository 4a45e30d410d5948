// Package bus receives sensor triggers over MQTT and feeds them to the
// producer. Malformed or unrecognized messages are dropped at the boundary.
package bus
