// Package telemetry holds the in-process device state for the greenhouse
// gateway: the authoritative snapshot, the typed partial updates decoded
// from each topic group, and the listener registry that fans merged
// snapshots out to consumers.
//
// # Data Model
//
// A single Snapshot carries three independently-updated field groups:
// environmental readings, actuator states, and spectral channels. Each
// inbound message decodes to a Partial covering exactly one group, and
// merging a partial never touches another group's fields - the snapshot
// is the union of the latest known value per field, not per message.
//
// # Usage
//
//	store := telemetry.NewStore()
//	snap := store.Merge(telemetry.EnvironmentPartial{Temperature: &temp})
//
//	registry := telemetry.NewRegistry()
//	unsubscribe := registry.Subscribe(func(s telemetry.Snapshot) {
//	    // react to the update
//	})
//	defer unsubscribe()
//	registry.Notify(snap)
//
// # Thread Safety
//
// Store and Registry are safe for concurrent use. The broker client
// delivers messages from its own goroutines while callers read the
// latest snapshot, so all snapshot access is serialized by the store
// mutex.
package telemetry
