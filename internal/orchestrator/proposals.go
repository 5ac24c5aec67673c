package orchestrator

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// defaultProposalTTL is how long a proposal stays confirmable. Stale
// proposals describe a fleet that may have changed underneath them, so they
// expire rather than linger.
const defaultProposalTTL = 30 * time.Minute

// ProposalManager tracks worker proposals awaiting a human decision. It is
// purely in-memory: a restart drops pending proposals, which is fine
// because proposing again is cheap.
type ProposalManager struct {
	mu        sync.RWMutex
	proposals map[string]Proposal
	ttl       time.Duration
	now       func() time.Time
}

// NewProposalManager creates a manager with the given TTL; zero means the
// default.
func NewProposalManager(ttl time.Duration) *ProposalManager {
	if ttl <= 0 {
		ttl = defaultProposalTTL
	}
	return &ProposalManager{
		proposals: make(map[string]Proposal),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Add parks a proposal, stamping its expiry.
func (m *ProposalManager) Add(p *Proposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ExpiresAt = p.CreatedAt.Add(m.ttl)
	m.proposals[p.ID] = *p
}

// Get returns the pending proposal with the given id. Expired or unknown
// ids report ErrProposalNotFound.
func (m *ProposalManager) Get(id string) (Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.proposals[id]
	if !ok {
		return Proposal{}, fmt.Errorf("%w: %s", ErrProposalNotFound, id)
	}
	if m.now().After(p.ExpiresAt) {
		delete(m.proposals, id)
		return Proposal{}, fmt.Errorf("%w: %s expired", ErrProposalNotFound, id)
	}
	return p, nil
}

// Remove drops a proposal. Removing an unknown id is a no-op.
func (m *ProposalManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proposals, id)
}

// Pending lists live proposals oldest first, sweeping out expired ones.
func (m *ProposalManager) Pending() []Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]Proposal, 0, len(m.proposals))
	for id, p := range m.proposals {
		if now.After(p.ExpiresAt) {
			delete(m.proposals, id)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
