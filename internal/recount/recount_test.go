package recount

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/internal/storage/memory"
)

type fakeStore struct {
	calls  int32
	report storage.RecountReport
	err    error
}

func (f *fakeStore) RecountCounters(ctx context.Context) (storage.RecountReport, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.report, f.err
}

func newJob(store Recounter) *Job {
	j := NewJob(store, time.Second)
	j.logger = zap.NewNop()
	return j
}

func TestRunOnce(t *testing.T) {
	store := &fakeStore{report: storage.RecountReport{Groups: 1, Comments: 2}}
	report, err := newJob(store).RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, report.Total())
	assert.EqualValues(t, 1, store.calls)
}

func TestRunOnce_Error(t *testing.T) {
	boom := errors.New("db down")
	_, err := newJob(&fakeStore{err: boom}).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRun_SwallowsErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	assert.NotPanics(t, newJob(store).Run)
	assert.EqualValues(t, 1, store.calls)
}

func TestRunOnce_MemoryStoreIsConsistent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := &models.Group{GroupName: "Chem", OwnerID: "u1", OwnerType: models.OwnerUser}
	require.NoError(t, store.CreateGroup(ctx, g))
	p := &models.Post{GroupID: g.GroupID, Title: "Titration", UID: "u1"}
	require.NoError(t, store.CreatePost(ctx, p))
	require.NoError(t, store.CreateReply(ctx, &models.Comment{Comment: "hi", UID: "u2", ParentID: p.PostID, ParentType: models.ParentPost}))

	report, err := newJob(store).RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total())
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(newJob(&fakeStore{}), "not a schedule")
	assert.Error(t, err)

	store := &fakeStore{}
	m, err := NewManager(newJob(store), "@every 1h")
	require.NoError(t, err)
	m.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
	assert.EqualValues(t, 0, atomic.LoadInt32(&store.calls))
}
