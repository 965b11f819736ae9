package reconcile

import (
	"context"
	"fmt"
	"strings"

	klog "k8s.io/klog/v2"
)

const (
	// MaxMembers is the member cap for one service group.
	MaxMembers = 3

	// ServiceNFS is the service kind this daemon manages.
	ServiceNFS = "nfs"
)

// ServiceInstance is one row of the cluster inventory: the given service is
// running on Host for the group GroupID. Snapshots are never mutated.
type ServiceInstance struct {
	Service string `json:"service"`
	GroupID string `json:"group_id"`
	Host    string `json:"location"`
}

type State int

const (
	Failed State = iota
	PartiallySatisfied
	FullySatisfied
	AlreadySatisfied
)

func (s State) String() string {
	switch s {
	case Failed:
		return "failed"
	case PartiallySatisfied:
		return "partially-satisfied"
	case FullySatisfied:
		return "fully-satisfied"
	case AlreadySatisfied:
		return "already-satisfied"
	}
	return "unknown"
}

// HostError records one host's actuation failure without aborting the rest
// of the batch.
type HostError struct {
	Host string
	Err  error
}

func (he HostError) Error() string {
	return fmt.Sprintf("%s: %v", he.Host, he.Err)
}

// Outcome is the result of one membership reconciliation. Failures carry
// the per-host errors for diagnostics regardless of the final state.
type Outcome struct {
	State    State
	Members  int
	Failures []HostError
}

// Usable reports whether the group ended up with at least one member.
func (o Outcome) Usable() bool {
	return o.State != Failed
}

// TeardownOutcome is the result of removing a group. Unlike enrollment,
// failures here are surfaced to the caller as an aggregate error.
type TeardownOutcome struct {
	Removed  int
	Failures []HostError
}

func (t TeardownOutcome) Err() error {
	if len(t.Failures) == 0 {
		return nil
	}
	hosts := make([]string, 0, len(t.Failures))
	for _, f := range t.Failures {
		hosts = append(hosts, f.Host)
	}
	return fmt.Errorf("%d removal(s) failed on host(s): %s", len(t.Failures), strings.Join(hosts, ", "))
}

// Reconciler converges one service group toward MaxMembers hosts. It holds
// no state of its own: every call re-derives membership from the inventory.
type Reconciler struct {
	service string

	inv Inventory
	uni Universe
	res Resolver
	act Actuator
}

func New(service string, inv Inventory, uni Universe, res Resolver, act Actuator) *Reconciler {
	if service == "" {
		panic("service kind must not be empty")
	}
	return &Reconciler{
		service: service,
		inv:     inv,
		uni:     uni,
		res:     res,
		act:     act,
	}
}

// Reconcile enrolls hosts into groupID until the group reaches MaxMembers
// or the candidates run out. A host already running the service for any
// group is never a candidate. Per-host enable failures are collected, not
// fatal; only an inventory or universe query failure aborts the attempt.
func (r *Reconciler) Reconcile(ctx context.Context, groupID string) (Outcome, error) {
	services, err := r.inv.ListServices(ctx, r.service)
	if err != nil {
		return Outcome{}, fmt.Errorf("list %s services: %w", r.service, err)
	}

	var members int
	exclude := make(map[string]struct{}, len(services))
	for _, s := range services {
		exclude[s.Host] = struct{}{}
		if s.GroupID == groupID {
			members++
		}
	}

	if members >= MaxMembers {
		klog.Infof("%s group %q already exists with %d node(s) in it", r.service, groupID, members)
		return Outcome{State: AlreadySatisfied, Members: members}, nil
	}

	hosts, err := r.uni.Hosts(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list candidate hosts: %w", err)
	}

	var failures []HostError
	for _, host := range hosts {
		if _, ok := exclude[host]; ok {
			continue
		}

		addr, err := r.res.ResolveAddress(ctx, host)
		if err != nil {
			failures = append(failures, HostError{Host: host, Err: err})
			continue
		}
		if addr == "" {
			klog.Warningf("could not find the public address of %q, skipping", host)
			continue
		}

		if err := r.act.Enable(ctx, host, groupID, addr); err != nil {
			klog.Errorf("could not enable %s (group %q) on host %q: %v", r.service, groupID, host, err)
			failures = append(failures, HostError{Host: host, Err: err})
			continue
		}

		members++
		if members == MaxMembers {
			break
		}
	}

	out := Outcome{Members: members, Failures: failures}
	switch {
	case members == 0:
		out.State = Failed
		klog.Errorf("could not create %s group %q on any host", r.service, groupID)
	case members < MaxMembers:
		out.State = PartiallySatisfied
		klog.Warningf("%s group %q is enabled only on %d / %d nodes", r.service, groupID, members, MaxMembers)
	default:
		out.State = FullySatisfied
		klog.Infof("%s group %q is enabled on %d / %d nodes", r.service, groupID, members, MaxMembers)
	}
	return out, nil
}

// TearDown removes every member of groupID. Each disable failure is
// recorded and the remaining members are still attempted; the aggregate is
// returned both in the outcome and as the error.
func (r *Reconciler) TearDown(ctx context.Context, groupID string) (TeardownOutcome, error) {
	services, err := r.inv.ListServices(ctx, r.service)
	if err != nil {
		return TeardownOutcome{}, fmt.Errorf("list %s services: %w", r.service, err)
	}

	var out TeardownOutcome
	for _, s := range services {
		if s.GroupID != groupID {
			continue
		}
		if err := r.act.Disable(ctx, s.Host, groupID); err != nil {
			klog.Errorf("could not disable %s (group %q) on host %q: %v", r.service, groupID, s.Host, err)
			out.Failures = append(out.Failures, HostError{Host: s.Host, Err: err})
			continue
		}
		out.Removed++
	}
	return out, out.Err()
}
