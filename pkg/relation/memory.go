package relation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nfsherd/nfsherd/types"
)

var _ Store = &Memory{}

// Memory is an in-process Store for tests and single-node setups.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	peers   map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Record),
		peers:   make(map[string]string),
	}
}

func (m *Memory) Publish(ctx context.Context, groupID string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[groupID] = rec
	return nil
}

func (m *Memory) Clear(ctx context.Context, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, groupID)
	return nil
}

func (m *Memory) Get(ctx context.Context, groupID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[groupID]
	if !ok {
		return Record{}, types.NewNotFoundError(fmt.Sprintf("no record for group %q", groupID))
	}
	return rec, nil
}

func (m *Memory) Groups(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := make([]string, 0, len(m.records))
	for g := range m.records {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

func (m *Memory) SetPeer(ctx context.Context, host, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[host] = addr
	return nil
}

func (m *Memory) Peers(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	peers := make(map[string]string, len(m.peers))
	for k, v := range m.peers {
		peers[k] = v
	}
	return peers, nil
}
