package lifecycle

import (
	"context"
	"sync"

	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/authority"
	"github.com/nfsherd/nfsherd/pkg/ceph"
	"github.com/nfsherd/nfsherd/pkg/reconcile"
	"github.com/nfsherd/nfsherd/pkg/relation"
)

// Disposition tells the signal scheduler what to do with a delivered
// lifecycle signal.
type Disposition int

const (
	// Completed means the signal was fully handled.
	Completed Disposition = iota
	// Deferred means a precondition was unmet or the group could not be
	// serviced; the same signal should be redelivered later.
	Deferred
	// Skipped means this process lacks write authority and did nothing.
	Skipped
)

func (d Disposition) String() string {
	switch d {
	case Completed:
		return "completed"
	case Deferred:
		return "deferred"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// State is the last observed lifecycle state of a group. It is derived
// bookkeeping for logs and the status API, never an input to decisions:
// membership is re-derived from the inventory on every signal.
type State int

const (
	Absent State = iota
	Provisioning
	Active
	Degraded
	Gone
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Provisioning:
		return "provisioning"
	case Active:
		return "active"
	case Degraded:
		return "degraded"
	case Gone:
		return "gone"
	}
	return "unknown"
}

var defaultCaps = ceph.Caps{
	"mon": {"allow r"},
	"mgr": {"allow rw"},
}

// Orchestrator drives membership reconciliation in response to consumer
// lifecycle signals and publishes the resulting connection records.
type Orchestrator struct {
	rec   Reconciler
	store relation.Store
	stor  Storage
	creds Credentials
	mons  Mons

	mu     sync.Mutex
	states map[string]State
}

func New(rec Reconciler, store relation.Store, stor Storage, creds Credentials, mons Mons) *Orchestrator {
	return &Orchestrator{
		rec:    rec,
		store:  store,
		stor:   stor,
		creds:  creds,
		mons:   mons,
		states: make(map[string]State),
	}
}

// HandleConnected services a consumer connect (or re-reconcile) signal for
// groupID. Without a held token nothing happens. With no backing storage
// the signal is deferred rather than failed.
func (o *Orchestrator) HandleConnected(ctx context.Context, tok authority.Token, groupID string) (Disposition, error) {
	if !tok.Held() {
		return Skipped, nil
	}

	if !o.stor.HasCapacity(ctx) {
		klog.Infof("storage not available, deferring connect for group %q", groupID)
		return Deferred, nil
	}

	klog.Infof("processing connect for group %q", groupID)
	ok, err := o.serviceGroup(ctx, groupID)
	if err != nil {
		klog.Errorf("an error occurred while servicing group %q, deferring: %v", groupID, err)
		return Deferred, err
	}
	if !ok {
		return Deferred, nil
	}
	return Completed, nil
}

// HandleDeparted tears the departing group down, revokes its credentials,
// clears its record, and then re-reconciles every other published group so
// the freed hosts can be reused.
func (o *Orchestrator) HandleDeparted(ctx context.Context, tok authority.Token, groupID string) (Disposition, error) {
	if !tok.Held() {
		return Skipped, nil
	}

	klog.Infof("processing departed for group %q", groupID)
	td, err := o.rec.TearDown(ctx, groupID)
	if err != nil {
		// Cleanup below still runs; the removal is degraded, not aborted.
		klog.Errorf("degraded removal of group %q (removed %d): %v", groupID, td.Removed, err)
	}

	if err := o.creds.RemoveNamedKey(ctx, clientName(groupID)); err != nil {
		klog.Errorf("could not remove key for group %q: %v", groupID, err)
	}
	if err := o.store.Clear(ctx, groupID); err != nil {
		klog.Errorf("could not clear record for group %q: %v", groupID, err)
	}
	o.setState(groupID, Gone)

	o.rebalance(ctx, groupID)
	return Completed, nil
}

// State returns the last observed lifecycle state of groupID.
func (o *Orchestrator) State(groupID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[groupID]
}

// serviceGroup reconciles one group and publishes its connection record.
// It returns false when the group ended up unusable (no members at all),
// in which case any previously published record is cleared.
func (o *Orchestrator) serviceGroup(ctx context.Context, groupID string) (bool, error) {
	o.setState(groupID, Provisioning)

	out, err := o.rec.Reconcile(ctx, groupID)
	if err != nil {
		return false, err
	}

	if !out.Usable() {
		// A record for a memberless group would not be usable; drop it.
		if err := o.store.Clear(ctx, groupID); err != nil {
			klog.Errorf("could not clear record for group %q: %v", groupID, err)
		}
		o.setState(groupID, Absent)
		return false, nil
	}

	volume := groupID + "-vol"
	if err := o.stor.EnsureFSVolume(ctx, volume); err != nil {
		return false, err
	}

	client := clientName(groupID)
	key, err := o.creds.EnsureNamedKey(ctx, client, defaultCaps)
	if err != nil {
		return false, err
	}

	addrs, err := o.mons.MonAddresses(ctx)
	if err != nil {
		return false, err
	}
	fsid, err := o.stor.FSID(ctx)
	if err != nil {
		return false, err
	}

	rec := relation.Record{
		ClusterID: groupID,
		FSID:      fsid,
		MonHosts:  addrs,
		Keyring:   key,
		Volume:    volume,
		Client:    client,
		Members:   out.Members,
	}
	if err := o.store.Publish(ctx, groupID, rec); err != nil {
		return false, err
	}

	if out.Members >= reconcile.MaxMembers {
		o.setState(groupID, Active)
	} else {
		o.setState(groupID, Degraded)
	}
	return true, nil
}

// rebalance re-reconciles every published group other than the departed
// one, best-effort, so freed hosts become candidates again.
func (o *Orchestrator) rebalance(ctx context.Context, departed string) {
	groups, err := o.store.Groups(ctx)
	if err != nil {
		klog.Errorf("could not list groups for rebalance: %v", err)
		return
	}
	for _, g := range groups {
		if g == departed {
			continue
		}
		klog.V(2).Infof("rebalancing group %q after %q departed", g, departed)
		if _, err := o.serviceGroup(ctx, g); err != nil {
			klog.Errorf("rebalance of group %q failed: %v", g, err)
		}
	}
}

func (o *Orchestrator) setState(groupID string, next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.states[groupID]
	if prev != next {
		klog.V(2).Infof("group %q: %s -> %s", groupID, prev, next)
	}
	o.states[groupID] = next
}

func clientName(groupID string) string {
	return "client." + groupID
}
