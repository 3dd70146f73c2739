package models

// PushEntry is one record as submitted to the replication endpoint. Local-only
// fields are stripped and the payload is sealed.
type PushEntry struct {
	ID            string     `json:"id" validate:"required,max=64"`
	EntityType    EntityType `json:"entityType" validate:"required,entity_type"`
	SealedPayload string     `json:"sealedPayload" validate:"required,base64"`
	Timestamp     int64      `json:"timestamp" validate:"gte=0"`
	UpdatedAt     int64      `json:"updatedAt" validate:"gt=0"`
	Deleted       bool       `json:"deleted"`
	DeletedAt     *int64     `json:"deletedAt,omitempty"`
}

// PushRequest is the body of POST /api/sync/push.
type PushRequest struct {
	Entries []PushEntry `json:"entries" validate:"required,min=1,max=1000,dive"`
}

// PushResponse reports which ids were written and which were left unchanged
// because an equal or newer version was already stored.
type PushResponse struct {
	AcceptedIDs []string `json:"acceptedIds"`
	SkippedIDs  []string `json:"skippedIds"`
}

// PullEntry is one change-feed row. ServerUpdatedAt is the server receipt time
// the cursor is built on.
type PullEntry struct {
	ID              string     `json:"id"`
	EntityType      EntityType `json:"entityType"`
	SealedPayload   string     `json:"sealedPayload"`
	Timestamp       int64      `json:"timestamp"`
	UpdatedAt       int64      `json:"updatedAt"`
	ServerUpdatedAt int64      `json:"serverUpdatedAt"`
	Deleted         bool       `json:"deleted"`
	DeletedAt       *int64     `json:"deletedAt,omitempty"`
}

// PullRequest carries the query parameters of GET /api/sync/pull.
type PullRequest struct {
	UserID int64 `json:"-"`
	Since  int64 `json:"since" validate:"gte=0"`
	Limit  int   `json:"limit" validate:"gte=0"`
}

// PullResponse is one page of the change feed. Limit is the page size the
// server actually applied; a page shorter than it is the last one.
type PullResponse struct {
	Entries    []PullEntry `json:"entries"`
	NextCursor int64       `json:"nextCursor"`
	ServerTime int64       `json:"serverTime"`
	Limit      int         `json:"limit,omitempty"`
}

// SyncAck identifies the exact record version the server accepted. The local
// synced flag is only set while the record still carries this UpdatedAt.
type SyncAck struct {
	ID        string
	UpdatedAt int64
}

// SyncStatus is the summary of the most recent sync cycle. It is replaced as a
// whole at the end of every cycle.
type SyncStatus struct {
	LastRunAt    int64  `json:"lastRunAt"`
	Pushed       int    `json:"pushed"`
	Pulled       int    `json:"pulled"`
	Skipped      int    `json:"skipped"`
	Pending      int    `json:"pending"`
	LastError    string `json:"lastError,omitempty"`
	AuthRequired bool   `json:"authRequired"`
	Running      bool   `json:"running"`
}

// Credentials are supplied by the external authentication flow. Salt is the
// per-user key derivation salt; when empty the legacy static salt is used.
type Credentials struct {
	AuthToken  string
	Passphrase string
	Salt       []byte
}

// Complete reports whether both the token and the passphrase are present.
func (c Credentials) Complete() bool {
	return c.AuthToken != "" && c.Passphrase != ""
}
