package models

// MaxPushEntries is the largest batch POST /api/sync/push accepts. It matches
// the validate tag of [PushRequest].
const MaxPushEntries = 1000

// MaxPullLimit is the largest page a client may request from
// GET /api/sync/pull.
const MaxPullLimit = 1000

// ServerInfo is served by GET /api/info. It reports the limits the endpoint
// enforces.
type ServerInfo struct {
	Version          string `json:"version"`
	PushMaxEntries   int    `json:"pushMaxEntries"`
	PullDefaultLimit int    `json:"pullDefaultLimit"`
	PullMaxLimit     int    `json:"pullMaxLimit"`
}
