package inventory

import (
	"context"

	"github.com/nfsherd/nfsherd/pkg/reconcile"
)

var _ reconcile.Universe = &LocationUniverse{}

// LocationUniverse derives the candidate host set from the locations of
// every service instance the cluster reports, in first-seen order. A host
// that has never run any service is invisible to this universe; operators
// who need such hosts enrolled should configure an explicit roster instead.
type LocationUniverse struct {
	inv reconcile.Inventory
}

func NewLocationUniverse(inv reconcile.Inventory) *LocationUniverse {
	return &LocationUniverse{inv: inv}
}

func (u *LocationUniverse) Hosts(ctx context.Context) ([]string, error) {
	services, err := u.inv.ListServices(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(services))
	var hosts []string
	for _, s := range services {
		if _, ok := seen[s.Host]; ok {
			continue
		}
		seen[s.Host] = struct{}{}
		hosts = append(hosts, s.Host)
	}
	return hosts, nil
}
