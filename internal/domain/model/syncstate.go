package model

// SyncState is the authentication/synchronization state exposed to the
// presentation layer.
type SyncState string

const (
	// SyncStateUnauthenticated means no usable credential is held.
	SyncStateUnauthenticated SyncState = "unauthenticated"
	// SyncStateAuthenticating means an interactive consent flow is in progress.
	SyncStateAuthenticating SyncState = "authenticating"
	// SyncStateReady means a credential is held and no sync is running.
	SyncStateReady SyncState = "ready"
	// SyncStateSyncing means a refresh, save, or delete sequence is in flight.
	SyncStateSyncing SyncState = "syncing"
)
