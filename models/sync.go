package models

// SyncStatus describes where the local vault stands relative to the server.
// The sync engine owns the value and moves it strictly along the edges
// idle -> dirty -> syncing -> {idle | conflict | dirty}.
type SyncStatus int

const (
	// StatusIdle means local state matches the last known server state.
	StatusIdle SyncStatus = iota

	// StatusDirty means there are local changes not yet pushed.
	StatusDirty

	// StatusSyncing means a push or pull cycle is in flight.
	StatusSyncing

	// StatusConflict means reconciliation is required before the local
	// changes can be pushed (the server moved ahead concurrently).
	StatusConflict
)

// String returns the lowercase name of the status.
func (s SyncStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusDirty:
		return "dirty"
	case StatusSyncing:
		return "syncing"
	case StatusConflict:
		return "conflict"
	}
	return "unknown"
}
