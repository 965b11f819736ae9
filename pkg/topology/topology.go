package topology

import (
	"context"

	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/reconcile"
	"github.com/nfsherd/nfsherd/pkg/relation"
	"github.com/nfsherd/nfsherd/utils"
)

var (
	_ reconcile.Resolver = &PeerResolver{}
	_ reconcile.Universe = Roster{}
)

// PeerResolver resolves a host's public address from the peer records each
// node publishes about itself (see RegisterSelf). An unknown host resolves
// to an empty address, which disqualifies it as a candidate.
type PeerResolver struct {
	store relation.Store
}

func NewPeerResolver(store relation.Store) *PeerResolver {
	return &PeerResolver{store: store}
}

func (p *PeerResolver) ResolveAddress(ctx context.Context, host string) (string, error) {
	peers, err := p.store.Peers(ctx)
	if err != nil {
		return "", err
	}
	return peers[host], nil
}

// Roster is a fixed candidate host universe, for deployments that maintain
// an explicit node list instead of deriving it from the service inventory.
type Roster []string

func (r Roster) Hosts(ctx context.Context) ([]string, error) {
	return append([]string(nil), r...), nil
}

// RegisterSelf publishes this node's public address, taken from the named
// network interface, into the peer topology.
func RegisterSelf(ctx context.Context, store relation.Store, hostname, ifname string) error {
	addr, err := utils.InterfaceAddress(ifname)
	if err != nil {
		return err
	}
	klog.Infof("registering peer %q with public address %q", hostname, addr)
	return store.SetPeer(ctx, hostname, addr)
}
