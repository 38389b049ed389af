package eas

// BodyPreference is a client-supplied body rendering preference from the
// airsyncbase:BodyPreference options block. TruncationSize is nil when the
// client did not send one, which means "never truncate" for Type 1/2.
type BodyPreference struct {
	Type           int
	TruncationSize *int
	AllOrNone      bool
}

// SyncRequest carries the decoded fields of a Sync command body. Only the
// first Collection block is recognized; the protocol clients in scope send
// one collection per request.
type SyncRequest struct {
	SyncKey         string
	CollectionID    string
	Class           string
	WindowSize      int // 0 when absent
	GetChanges      bool
	BodyPreferences []BodyPreference
	FetchServerIDs  []string
	DeleteServerIDs []string
}

// FolderSyncRequest carries the hierarchy sync key.
type FolderSyncRequest struct {
	SyncKey string
}

// ProvisionRequest distinguishes the two handshake phases. ClientPolicyKey
// is nil for the initial request and points at the echoed key (always "0")
// for the acknowledgment.
type ProvisionRequest struct {
	PolicyType      string
	ClientPolicyKey *string
}

// Acknowledgment reports whether this request is the Phase 2
// acknowledgment of a previously issued policy.
func (r *ProvisionRequest) Acknowledgment() bool {
	return r.ClientPolicyKey != nil && *r.ClientPolicyKey == UnprovisionedPolicyKey
}

// PingRequest carries the heartbeat and monitored folder set. Heartbeat is
// 0 when the client relied on the server default.
type PingRequest struct {
	HeartbeatSeconds int
	FolderIDs        []string
}

// ItemOperationsFetch is one Fetch entry of an ItemOperations request.
type ItemOperationsFetch struct {
	Store           string
	CollectionID    string
	ServerID        string
	BodyPreferences []BodyPreference
}

// ItemOperationsRequest is the decoded ItemOperations body; only Fetch
// operations are recognized.
type ItemOperationsRequest struct {
	Fetches []ItemOperationsFetch
}

// GetItemEstimateRequest carries the collection whose unsent-item count
// the client wants.
type GetItemEstimateRequest struct {
	CollectionID string
	SyncKey      string
	Class        string
}

// SearchRequest carries a GAL query.
type SearchRequest struct {
	StoreName string
	Query     string
}
