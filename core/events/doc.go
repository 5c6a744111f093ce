// Package events defines the dispatch events emitted on the event bus.
//
// Available event types:
//   - TripEvent: a trip changed lifecycle state
//   - MovementEvent: a driver advanced one edge along a trip path
//   - DriverEvent: a driver was added, toggled or relocated
//   - RollbackEvent: a ledger snapshot was undone
package events
