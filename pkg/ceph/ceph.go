package ceph

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/utils"
)

const (
	cephCmd = "microceph.ceph"

	// DefaultConfPath is where the storage cluster snap renders ceph.conf.
	DefaultConfPath = "/var/snap/microceph/current/conf/ceph.conf"
)

// Caps maps a ceph subsystem to its capability strings, e.g.
// {"mon": ["allow r"], "mgr": ["allow rw"]}.
type Caps map[string][]string

type runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Client wraps the ceph administrative command line for the few idempotent
// CRUD calls the orchestrator needs: named keys, fs volumes, and the OSD
// capacity check.
type Client struct {
	runner   runner
	confPath string
}

func New(timeout time.Duration, confPath string) *Client {
	if confPath == "" {
		confPath = DefaultConfPath
	}
	return &Client{
		runner:   utils.NewRunner(timeout),
		confPath: confPath,
	}
}

// EnsureNamedKey returns the cephx key for name, creating it with the given
// capabilities when it does not exist yet.
func (c *Client) EnsureNamedKey(ctx context.Context, name string, caps Caps) (string, error) {
	args := []string{"auth", "get-or-create", name}
	subsystems := make([]string, 0, len(caps))
	for subsystem := range caps {
		subsystems = append(subsystems, subsystem)
	}
	sort.Strings(subsystems)
	for _, subsystem := range subsystems {
		args = append(args, subsystem, strings.Join(caps[subsystem], ","))
	}

	out, err := c.runner.Run(ctx, cephCmd, args...)
	if err != nil {
		return "", fmt.Errorf("get or create key %q: %w", name, err)
	}
	key := parseKey(out)
	if key == "" {
		return "", fmt.Errorf("no key found in keyring output for %q", name)
	}
	return key, nil
}

// RemoveNamedKey deletes the cephx key for name.
func (c *Client) RemoveNamedKey(ctx context.Context, name string) error {
	klog.V(2).Infof("removing key %q", name)
	_, err := c.runner.Run(ctx, cephCmd, "auth", "del", name)
	if err != nil {
		return fmt.Errorf("remove key %q: %w", name, err)
	}
	return nil
}

// ListFSVolumes returns the names of the existing fs volumes.
func (c *Client) ListFSVolumes(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, cephCmd, "fs", "volume", "ls", "--format", "json")
	if err != nil {
		return nil, fmt.Errorf("list fs volumes: %w", err)
	}
	var volumes []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(out, &volumes); err != nil {
		return nil, fmt.Errorf("parse fs volume listing: %w", err)
	}
	names := make([]string, 0, len(volumes))
	for _, v := range volumes {
		names = append(names, v.Name)
	}
	return names, nil
}

// CreateFSVolume creates the named fs volume.
func (c *Client) CreateFSVolume(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx, cephCmd, "fs", "volume", "create", name)
	if err != nil {
		return fmt.Errorf("create fs volume %q: %w", name, err)
	}
	return nil
}

// EnsureFSVolume creates the named fs volume if it does not exist.
func (c *Client) EnsureFSVolume(ctx context.Context, name string) error {
	volumes, err := c.ListFSVolumes(ctx)
	if err != nil {
		return err
	}
	for _, v := range volumes {
		if v == name {
			return nil
		}
	}
	return c.CreateFSVolume(ctx, name)
}

// OSDCount returns the number of OSDs, or zero when the query fails.
func (c *Client) OSDCount(ctx context.Context) int {
	out, err := c.runner.Run(ctx, cephCmd, "osd", "ls")
	if err != nil {
		klog.Warningf("failed getting the number of OSDs: %v", err)
		return 0
	}
	return strings.Count(string(out), "\n")
}

// HasCapacity reports whether the cluster has any backing storage at all.
func (c *Client) HasCapacity(ctx context.Context) bool {
	return c.OSDCount(ctx) > 0
}

// FSID reads the cluster fsid from ceph.conf.
func (c *Client) FSID(ctx context.Context) (string, error) {
	f, err := os.Open(c.confPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", c.confPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "fsid") && strings.Contains(line, "=") {
			return strings.TrimSpace(strings.SplitN(line, "=", 2)[1]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no fsid found in %s", c.confPath)
}

func parseKey(keyring []byte) string {
	for _, line := range strings.Split(string(keyring), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "key") && strings.Contains(line, "=") {
			return strings.TrimSpace(strings.SplitN(line, "=", 2)[1])
		}
	}
	return ""
}
