// Package alsasink bridges a poll-driven playback device to a sound server style sink.
//
// A Core loads Modules. Each Module owns one Device through a Session, negotiates its
// parameters, exposes it as a Sink and runs a dedicated I/O goroutine that waits on the
// device's readiness descriptors, renders audio on demand and writes it to the device.
// Control requests (state changes, latency and volume) travel to the I/O goroutine over an
// AsyncMsgQ, so device transport calls are never issued concurrently.
//
// The hardware backend lives in the alsa subpackage; anything implementing Device can be
// plugged in through an Opener.
package alsasink
