package lifecycle

import (
	"context"

	"github.com/nfsherd/nfsherd/pkg/ceph"
	"github.com/nfsherd/nfsherd/pkg/reconcile"
)

// Reconciler is the membership engine driven by the orchestrator.
type Reconciler interface {
	Reconcile(ctx context.Context, groupID string) (reconcile.Outcome, error)
	TearDown(ctx context.Context, groupID string) (reconcile.TeardownOutcome, error)
}

// Storage is the backing storage precondition and volume CRUD collaborator.
type Storage interface {
	HasCapacity(ctx context.Context) bool
	EnsureFSVolume(ctx context.Context, name string) error
	FSID(ctx context.Context) (string, error)
}

// Credentials issues and revokes consumer access keys.
type Credentials interface {
	EnsureNamedKey(ctx context.Context, name string, caps ceph.Caps) (string, error)
	RemoveNamedKey(ctx context.Context, name string) error
}

// Mons exposes the cluster monitor endpoints published to consumers.
type Mons interface {
	MonAddresses(ctx context.Context) ([]string, error)
}
