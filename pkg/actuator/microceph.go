package actuator

import (
	"context"
	"time"

	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/reconcile"
	"github.com/nfsherd/nfsherd/utils"
)

var _ reconcile.Actuator = &MicroCeph{}

const microcephCmd = "microceph"

type runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// MicroCeph flips the NFS service on or off for a single host by driving
// the microceph command line. Neither call is guaranteed idempotent by the
// cluster, so callers must treat failures per host.
type MicroCeph struct {
	runner runner
}

func NewMicroCeph(timeout time.Duration) *MicroCeph {
	return &MicroCeph{runner: utils.NewRunner(timeout)}
}

func (m *MicroCeph) Enable(ctx context.Context, host, groupID, publicAddr string) error {
	_, err := m.runner.Run(ctx, microcephCmd,
		"enable", "nfs",
		"--target", host,
		"--cluster-id", groupID,
		"--bind-address", publicAddr,
	)
	if err != nil {
		return err
	}
	klog.V(2).Infof("enabled nfs on host %q for group %q, bind address %q", host, groupID, publicAddr)
	return nil
}

func (m *MicroCeph) Disable(ctx context.Context, host, groupID string) error {
	_, err := m.runner.Run(ctx, microcephCmd,
		"disable", "nfs",
		"--target", host,
		"--cluster-id", groupID,
	)
	if err != nil {
		return err
	}
	klog.V(2).Infof("disabled nfs on host %q for group %q", host, groupID)
	return nil
}
