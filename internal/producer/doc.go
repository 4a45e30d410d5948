// Package producer turns sensor notifications into stored events and, for
// motion, recorded media. Intake is a bounded queue drained by a single
// worker so recording never runs on the transport's delivery goroutine.
package producer
