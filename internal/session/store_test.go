package session

import (
	"context"
	"sync"
	"testing"

	"teamboard-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeLog struct {
	mu  sync.Mutex
	chs []Change
}

func (l *changeLog) add(c Change) {
	l.mu.Lock()
	l.chs = append(l.chs, c)
	l.mu.Unlock()
}

func (l *changeLog) all() []Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Change(nil), l.chs...)
}

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(context.Background(), dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_StateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Complete())

	require.NoError(t, s.SaveSessionID(ctx, "sess-9"))
	require.NoError(t, s.SaveUser(ctx, model.User{ID: 3, Username: "ana", Role: model.RoleAdmin}))

	st, err = s.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, st.Complete())
	assert.Equal(t, "sess-9", st.SessionID)
	assert.Equal(t, int64(3), st.User.ID)
	assert.Equal(t, model.RoleAdmin, st.User.Role)

	require.NoError(t, s.ClearState(ctx))
	st, err = s.LoadState(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.SessionID)
	assert.Nil(t, st.User)
}

func TestStore_CorruptUserIsAnError(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	require.NoError(t, s.Set(ctx, KeyUser, "{not json"))
	_, err := s.LoadState(ctx)
	assert.Error(t, err)
}

func TestStore_SubscribersSeeRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	var log changeLog
	unsub := s.Subscribe(log.add)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Clear(ctx))
	unsub()
	require.NoError(t, s.Set(ctx, "b", "2"))

	got := log.all()
	require.Len(t, got, 3)
	assert.Equal(t, Change{Op: OpSet, Key: "a"}, got[0])
	assert.Equal(t, Change{Op: OpRemove, Key: "a"}, got[1])
	assert.Equal(t, Change{Op: OpClear}, got[2])
}

func TestStore_PollDetectsRemovalByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mine := openStore(t, dir)
	require.NoError(t, mine.SaveSessionID(ctx, "s"))
	require.NoError(t, mine.SaveUser(ctx, model.User{ID: 1, Username: "u"}))

	changed, err := mine.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	var log changeLog
	mine.Subscribe(log.add)

	other := openStore(t, dir)
	require.NoError(t, other.ClearState(ctx))

	changed, err = mine.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	got := log.all()
	require.Len(t, got, 2)
	assert.Equal(t, Change{Op: OpRemove, Key: KeySessionID, External: true}, got[0])
	assert.Equal(t, Change{Op: OpRemove, Key: KeyUser, External: true}, got[1])

	changed, err = mine.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}
