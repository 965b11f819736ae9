package reconcile

import "context"

// Collaborators the reconciler drives. All of them talk to the storage
// cluster in some form, so every call takes a context.

// Inventory lists the service instances currently running on the cluster.
// An empty service lists every instance regardless of kind.
type Inventory interface {
	ListServices(ctx context.Context, service string) ([]ServiceInstance, error)
}

// Universe supplies the set of hosts eligible for enrollment, in a
// deterministic order. Implementations decide where the roster comes from
// (service inventory locations, a static list, ...).
type Universe interface {
	Hosts(ctx context.Context) ([]string, error)
}

// Resolver maps a host to its externally reachable address. An empty
// address with a nil error means the host is unresolved, which is a normal
// outcome, not a failure.
type Resolver interface {
	ResolveAddress(ctx context.Context, host string) (string, error)
}

// Actuator turns the managed service on or off for one host. Calls are not
// assumed idempotent and may fail per host.
type Actuator interface {
	Enable(ctx context.Context, host, groupID, publicAddr string) error
	Disable(ctx context.Context, host, groupID string) error
}
