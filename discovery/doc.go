// Package discovery implements the discovery session and connection-state manager.
//
// All state (the device registry, the scan session and the connection state) is owned by
// a single goroutine, and every mutation is queued onto it. Events delivered by the radio
// adapter are tagged with the validity token of the scan session that registered them, so
// that late events from a stopped or superseded session are dropped instead of mutating
// the current registry.
//
// The presentation layer only observes immutable snapshots of this state, which are published
// on every change, and drives the core through [Service.StartScan] and [Service.Connect].
package discovery
