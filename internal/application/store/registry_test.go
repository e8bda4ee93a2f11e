package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"opencrvs/internal/application/models"
	"opencrvs/internal/kv"
	id "opencrvs/pkg/domain"
	"opencrvs/pkg/platform/sentinel"
)

type RegistrySuite struct {
	suite.Suite
	ctx    context.Context
	kv     *kv.Memory
	reg    *Registry
	userID id.UserID
	now    time.Time
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = kv.NewMemory()
	s.userID = id.UserID("registration-agent")
	s.reg = NewRegistry(s.userID, s.kv)
	s.now = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	s.Require().NoError(s.reg.Load(s.ctx))
}

func (s *RegistrySuite) draft(event id.EventType, firstName string) models.Application {
	app := models.New(event, s.now)
	app.Data = models.Data{"child": {"firstName": firstName}}
	return app
}

func (s *RegistrySuite) TestEmptyRegistry() {
	s.Run("ListBy yields nothing", func() {
		count := 0
		for range s.reg.ListBy(func(models.Application) bool { return true }) {
			count++
		}
		s.Zero(count)
	})
	s.Run("Get is not found", func() {
		_, err := s.reg.Get(id.NewApplicationID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
	s.Run("nothing selected", func() {
		_, ok := s.reg.Selected()
		s.False(ok)
	})
}

func (s *RegistrySuite) TestUpsertKeepsInsertionOrder() {
	a := s.draft(id.EventBirth, "A")
	b := s.draft(id.EventDeath, "B")
	c := s.draft(id.EventBirth, "C")
	for _, app := range []models.Application{a, b, c} {
		s.Require().NoError(s.reg.Upsert(s.ctx, app))
	}

	b.SubmissionStatus = models.StatusSubmitting
	s.Require().NoError(s.reg.Upsert(s.ctx, b))

	var ids []id.ApplicationID
	for app := range s.reg.All() {
		ids = append(ids, app.ID)
	}
	s.Equal([]id.ApplicationID{a.ID, b.ID, c.ID}, ids)

	got, err := s.reg.Get(b.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitting, got.SubmissionStatus)
}

func (s *RegistrySuite) TestSnapshotRoundTrip() {
	a := s.draft(id.EventBirth, "Anne")
	a.TrackingID = "B7ZK2QP"
	b := s.draft(id.EventDeath, "Bob")
	b.SubmissionStatus = models.StatusRegistered
	b.DownloadStatus = models.DownloadDone
	b.ModifiedOn = s.now.Add(time.Hour)
	s.Require().NoError(s.reg.Upsert(s.ctx, a))
	s.Require().NoError(s.reg.Upsert(s.ctx, b))

	reloaded := NewRegistry(s.userID, s.kv)
	s.Require().NoError(reloaded.Load(s.ctx))

	s.Equal(slices.Collect(s.reg.All()), slices.Collect(reloaded.All()))
}

func (s *RegistrySuite) TestListByIsRestartable() {
	s.Require().NoError(s.reg.Upsert(s.ctx, s.draft(id.EventBirth, "A")))
	seq := s.reg.ListBy(models.WorklistInProgress.Predicate())

	s.Len(slices.Collect(seq), 1)
	s.Require().NoError(s.reg.Upsert(s.ctx, s.draft(id.EventBirth, "B")))
	s.Len(slices.Collect(seq), 2, "second range sees the new application")
}

func (s *RegistrySuite) TestListByStopsEarly() {
	for i := range 5 {
		s.Require().NoError(s.reg.Upsert(s.ctx, s.draft(id.EventBirth, fmt.Sprint(i))))
	}
	seen := 0
	for range s.reg.All() {
		seen++
		if seen == 2 {
			break
		}
	}
	s.Equal(2, seen)
}

func (s *RegistrySuite) TestRemove() {
	app := s.draft(id.EventBirth, "A")
	s.Require().NoError(s.reg.Upsert(s.ctx, app))
	s.Require().NoError(s.reg.Select(app.ID))

	s.Run("removes and persists", func() {
		s.Require().NoError(s.reg.Remove(s.ctx, app.ID))
		_, err := s.reg.Get(app.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, selected := s.reg.Selected()
		s.False(selected)

		reloaded := NewRegistry(s.userID, s.kv)
		s.Require().NoError(reloaded.Load(s.ctx))
		s.Zero(reloaded.Len())
	})

	s.Run("unknown id is a no-op", func() {
		s.NoError(s.reg.Remove(s.ctx, id.NewApplicationID()))
	})
}

func (s *RegistrySuite) TestSelection() {
	a := s.draft(id.EventBirth, "A")
	b := s.draft(id.EventBirth, "B")
	s.Require().NoError(s.reg.Upsert(s.ctx, a))
	s.Require().NoError(s.reg.Upsert(s.ctx, b))

	s.Require().NoError(s.reg.Select(a.ID))
	s.Require().NoError(s.reg.Select(b.ID))
	got, ok := s.reg.Selected()
	s.Require().True(ok)
	s.Equal(b.ID, got.ID)

	s.ErrorIs(s.reg.Select(id.NewApplicationID()), sentinel.ErrNotFound)

	reloaded := NewRegistry(s.userID, s.kv)
	s.Require().NoError(reloaded.Load(s.ctx))
	_, ok = reloaded.Selected()
	s.False(ok, "selection is not persisted")
}

func (s *RegistrySuite) TestUpdate() {
	app := s.draft(id.EventBirth, "A")
	s.Require().NoError(s.reg.Upsert(s.ctx, app))

	s.Run("applies a change", func() {
		got, err := s.reg.Update(s.ctx, app.ID, func(a *models.Application) (bool, error) {
			next, changed := models.Transition(a.State(), models.EventSubmit)
			a.SetState(next)
			return changed, nil
		})
		s.Require().NoError(err)
		s.Equal(models.StatusSubmitting, got.SubmissionStatus)
	})

	s.Run("unknown id", func() {
		_, err := s.reg.Update(s.ctx, id.NewApplicationID(), func(*models.Application) (bool, error) {
			s.Fail("fn must not run")
			return false, nil
		})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("fn error leaves state untouched", func() {
		boom := errors.New("boom")
		_, err := s.reg.Update(s.ctx, app.ID, func(a *models.Application) (bool, error) {
			a.SubmissionStatus = models.StatusCertified
			return true, boom
		})
		s.ErrorIs(err, boom)
		got, _ := s.reg.Get(app.ID)
		s.Equal(models.StatusSubmitting, got.SubmissionStatus)
	})
}

func (s *RegistrySuite) TestReturnedCopiesAreIsolated() {
	app := s.draft(id.EventBirth, "A")
	s.Require().NoError(s.reg.Upsert(s.ctx, app))

	got, err := s.reg.Get(app.ID)
	s.Require().NoError(err)
	got.Data["child"]["firstName"] = "mutated"

	again, _ := s.reg.Get(app.ID)
	s.Equal("A", again.Data["child"]["firstName"])
}

type failingStore struct {
	kv.Store
	err error
}

func (f failingStore) Set(context.Context, string, string) error { return f.err }

func TestPersistFailureIsReported(t *testing.T) {
	ctx := context.Background()
	unavailable := fmt.Errorf("redis down: %w", sentinel.ErrUnavailable)
	reg := NewRegistry("agent", failingStore{Store: kv.NewMemory(), err: unavailable})
	require.NoError(t, reg.Load(ctx))

	app := models.New(id.EventBirth, time.Now())
	err := reg.Upsert(ctx, app)
	require.ErrorIs(t, err, sentinel.ErrUnavailable)

	_, getErr := reg.Get(app.ID)
	assert.NoError(t, getErr, "in-memory state keeps the write")
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, SnapshotKey("agent"), "{not json"))

	err := NewRegistry("agent", store).Load(ctx)
	require.Error(t, err)
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	reg := NewRegistry("agent", store)
	require.NoError(t, reg.Load(ctx))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Upsert(ctx, models.New(id.EventBirth, time.Now()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, reg.Len())

	reloaded := NewRegistry("agent", store)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 20, reloaded.Len())
}

func TestRegistriesArePerUser(t *testing.T) {
	ctx := context.Background()
	regs := NewRegistries(kv.NewMemory())

	a, err := regs.For(ctx, "alice")
	require.NoError(t, err)
	b, err := regs.For(ctx, "bob")
	require.NoError(t, err)
	again, err := regs.For(ctx, "alice")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)

	require.NoError(t, a.Upsert(ctx, models.New(id.EventBirth, time.Now())))
	assert.Equal(t, 0, b.Len())
}
