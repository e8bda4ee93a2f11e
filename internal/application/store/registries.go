package store

import (
	"context"
	"sync"

	"opencrvs/internal/kv"
	id "opencrvs/pkg/domain"
)

// Registries hands out one Registry per user, loading each from storage on
// first use.
type Registries struct {
	mu     sync.Mutex
	kv     kv.Store
	byUser map[id.UserID]*Registry
}

func NewRegistries(store kv.Store) *Registries {
	return &Registries{kv: store, byUser: make(map[id.UserID]*Registry)}
}

// For returns userID's registry. A registry whose load fails is not cached,
// so the next call retries.
func (r *Registries) For(ctx context.Context, userID id.UserID) (*Registry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.byUser[userID]; ok {
		return reg, nil
	}
	reg := NewRegistry(userID, r.kv)
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}
	r.byUser[userID] = reg
	return reg, nil
}
