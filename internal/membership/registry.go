package membership

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fkhayef/cinecircle/internal/notification"
)

// Registry hands out one engine per group view. Navigating to a group creates
// (and primes) its engine; navigating away detaches it so in-flight reloads
// stop writing into state nobody renders.
type Registry struct {
	client   Client
	hints    *Repository
	notices  *notification.Service
	viewerID int64
	hintTTL  time.Duration

	mu      sync.Mutex
	engines map[int64]*Service
}

// NewRegistry creates a registry for the agent's viewer
func NewRegistry(client Client, hints *Repository, notices *notification.Service, viewerID int64, hintTTL time.Duration) *Registry {
	if hintTTL <= 0 {
		hintTTL = HintTTL
	}
	return &Registry{
		client:   client,
		hints:    hints,
		notices:  notices,
		viewerID: viewerID,
		hintTTL:  hintTTL,
		engines:  make(map[int64]*Service),
	}
}

// Get returns the engine for a group, fetching the group and running the
// first reconciliation when the view is entered for the first time.
func (r *Registry) Get(ctx context.Context, groupID int64) (*Service, error) {
	r.mu.Lock()
	if svc, ok := r.engines[groupID]; ok {
		r.mu.Unlock()
		return svc, nil
	}
	r.mu.Unlock()

	fetched, err := r.client.GetGroupDetails(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %d: %w", groupID, err)
	}

	svc := NewService(r.client, r.hints, r.notices, r.viewerID)
	svc.hintTTL = r.hintTTL
	svc.SetGroup(fetched)
	if err := svc.Reconcile(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.engines[groupID]; ok {
		// another request primed the same view first
		svc.Close()
		return existing, nil
	}
	r.engines[groupID] = svc
	return svc, nil
}

// Detach closes and forgets the engine for a group, if one exists
func (r *Registry) Detach(groupID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.engines[groupID]; ok {
		svc.Close()
		delete(r.engines, groupID)
	}
}
