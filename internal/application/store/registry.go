package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"opencrvs/internal/application/models"
	"opencrvs/internal/kv"
	id "opencrvs/pkg/domain"
	"opencrvs/pkg/platform/sentinel"
)

// SnapshotKeyPrefix prefixes the storage key of every user's snapshot.
const SnapshotKeyPrefix = "applications:"

// SnapshotKey is the storage key holding userID's registry snapshot.
func SnapshotKey(userID id.UserID) string {
	return SnapshotKeyPrefix + userID.String()
}

// Registry is one user's ordered collection of applications, mirrored to the
// storage adapter after every mutation. In-memory state is updated before the
// write, so a failed write is reported but not rolled back.
type Registry struct {
	mu       sync.RWMutex
	userID   id.UserID
	kv       kv.Store
	order    []id.ApplicationID
	apps     map[id.ApplicationID]models.Application
	selected id.ApplicationID
}

// NewRegistry returns an empty registry for userID. Call Load to rehydrate it.
func NewRegistry(userID id.UserID, store kv.Store) *Registry {
	return &Registry{
		userID: userID,
		kv:     store,
		apps:   make(map[id.ApplicationID]models.Application),
	}
}

func (r *Registry) UserID() id.UserID { return r.userID }

// Load replaces the in-memory state with the persisted snapshot. A missing
// snapshot yields an empty registry.
func (r *Registry) Load(ctx context.Context) error {
	raw, err := r.kv.Get(ctx, SnapshotKey(r.userID))
	if errors.Is(err, sentinel.ErrNotFound) {
		r.mu.Lock()
		r.reset(nil)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(snap.Applications)
	return nil
}

func (r *Registry) reset(apps []models.Application) {
	r.order = r.order[:0]
	r.apps = make(map[id.ApplicationID]models.Application, len(apps))
	r.selected = id.ApplicationID{}
	for _, app := range apps {
		if _, dup := r.apps[app.ID]; !dup {
			r.order = append(r.order, app.ID)
		}
		r.apps[app.ID] = app
	}
}

// Get returns a copy of the application or sentinel.ErrNotFound.
func (r *Registry) Get(appID id.ApplicationID) (models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[appID]
	if !ok {
		return models.Application{}, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

// Upsert replaces an existing application in place or appends a new one, then
// persists the snapshot.
func (r *Registry) Upsert(ctx context.Context, app models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(app)
	return r.persist(ctx)
}

func (r *Registry) put(app models.Application) {
	if _, exists := r.apps[app.ID]; !exists {
		r.order = append(r.order, app.ID)
	}
	r.apps[app.ID] = app.Clone()
}

// Update runs fn on a copy of the application under the registry lock and
// stores the result when fn reports a change. Unknown ids return
// sentinel.ErrNotFound without calling fn.
func (r *Registry) Update(ctx context.Context, appID id.ApplicationID, fn func(*models.Application) (bool, error)) (models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.apps[appID]
	if !ok {
		return models.Application{}, sentinel.ErrNotFound
	}
	next := current.Clone()
	changed, err := fn(&next)
	if err != nil {
		return current.Clone(), err
	}
	if !changed {
		return current.Clone(), nil
	}
	next.ID = appID
	r.put(next)
	return next.Clone(), r.persist(ctx)
}

// ListBy yields the applications matching pred in insertion order. Each
// range over the sequence reads the registry afresh.
func (r *Registry) ListBy(pred func(models.Application) bool) iter.Seq[models.Application] {
	return func(yield func(models.Application) bool) {
		for _, app := range r.snapshot() {
			if pred != nil && !pred(app) {
				continue
			}
			if !yield(app) {
				return
			}
		}
	}
}

// All is ListBy without a filter.
func (r *Registry) All() iter.Seq[models.Application] {
	return r.ListBy(nil)
}

func (r *Registry) snapshot() []models.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Application, 0, len(r.order))
	for _, appID := range r.order {
		out = append(out, r.apps[appID].Clone())
	}
	return out
}

// Len returns the number of applications held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Remove deletes the application and persists the snapshot. Removing an
// unknown id does nothing.
func (r *Registry) Remove(ctx context.Context, appID id.ApplicationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[appID]; !ok {
		return nil
	}
	delete(r.apps, appID)
	r.order = slices.DeleteFunc(r.order, func(x id.ApplicationID) bool { return x == appID })
	if r.selected == appID {
		r.selected = id.ApplicationID{}
	}
	return r.persist(ctx)
}

// Select marks one application as the current detail view. The selection is
// kept in memory only.
func (r *Registry) Select(appID id.ApplicationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[appID]; !ok {
		return sentinel.ErrNotFound
	}
	r.selected = appID
	return nil
}

// Selected returns the selected application, if any.
func (r *Registry) Selected() (models.Application, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected.IsNil() {
		return models.Application{}, false
	}
	app, ok := r.apps[r.selected]
	if !ok {
		return models.Application{}, false
	}
	return app.Clone(), true
}

// persist writes the full snapshot. Callers hold r.mu.
func (r *Registry) persist(ctx context.Context) error {
	snap := models.Snapshot{UserID: r.userID, Applications: make([]models.Application, 0, len(r.order))}
	for _, appID := range r.order {
		snap.Applications = append(snap.Applications, r.apps[appID])
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := r.kv.Set(ctx, SnapshotKey(r.userID), string(raw)); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}
