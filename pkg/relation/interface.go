package relation

import "context"

// Record is the connection summary published to a consumer once its group
// has at least one active member. It is written all-or-nothing: a group
// either has a complete record or none at all.
type Record struct {
	ClusterID string   `json:"cluster-id"`
	FSID      string   `json:"fsid"`
	MonHosts  []string `json:"mon-hosts"`
	Keyring   string   `json:"keyring"`
	Volume    string   `json:"volume"`
	Client    string   `json:"client"`
	Members   int      `json:"member-count"`
}

// Store is the shared relation state exchanged with consumers, plus the
// peer topology records each node publishes about itself.
type Store interface {
	// Publish replaces the record for groupID.
	Publish(ctx context.Context, groupID string, rec Record) error
	// Clear removes the record for groupID. Clearing an absent group is
	// not an error.
	Clear(ctx context.Context, groupID string) error
	// Get returns the record for groupID, or types.NotFoundErr.
	Get(ctx context.Context, groupID string) (Record, error)
	// Groups lists every group with a published record.
	Groups(ctx context.Context) ([]string, error)

	// SetPeer publishes the public address of one host.
	SetPeer(ctx context.Context, host, addr string) error
	// Peers returns the host to public address mapping.
	Peers(ctx context.Context) (map[string]string, error)
}
