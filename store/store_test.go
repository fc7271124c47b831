package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func (i item) EntityID() string { return i.ID }

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestUpsertOrderingPolicies(t *testing.T) {
	appendStore := New[item](Append)
	appendStore.Upsert(item{ID: "1"})
	appendStore.Upsert(item{ID: "2"})
	assert.Equal(t, []string{"1", "2"}, ids(appendStore.List()))

	prependStore := New[item](Prepend)
	prependStore.Upsert(item{ID: "1"})
	prependStore.Upsert(item{ID: "2"})
	assert.Equal(t, []string{"2", "1"}, ids(prependStore.List()))
}

func TestUpsertReplacesInPlace(t *testing.T) {
	s := New[item](Append)
	s.Upsert(item{ID: "1", Name: "a"})
	s.Upsert(item{ID: "2", Name: "b"})
	s.Upsert(item{ID: "1", Name: "a2"})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"1", "2"}, ids(s.List()), "replace must preserve position")

	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Name)
}

func TestUpsertIfAbsentIsIdempotent(t *testing.T) {
	s := New[item](Prepend)

	_, inserted := s.UpsertIfAbsent(item{ID: "1", Name: "local"})
	assert.True(t, inserted)

	// Echoed push event for the same creation.
	snapshot, inserted := s.UpsertIfAbsent(item{ID: "1", Name: "echo"})
	assert.False(t, inserted)
	require.Len(t, snapshot, 1)

	got, _ := s.Get("1")
	assert.Equal(t, "local", got.Name, "echo must not overwrite the existing entry")
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	s := New[item](Append)
	s.Upsert(item{ID: "1"})

	_, removed := s.Remove("missing")
	assert.False(t, removed)
	assert.Equal(t, 1, s.Len())

	_, removed = s.Remove("1")
	assert.True(t, removed)
	_, removed = s.Remove("1")
	assert.False(t, removed, "duplicate delete must be a no-op")
	assert.Equal(t, 0, s.Len())
}

// Local REST confirmation and the echoed push event for the same logical
// mutation may arrive in either order. Both interleavings must converge.
func TestMergeInterleavingsConverge(t *testing.T) {
	created := item{ID: "1", Name: "Alpha"}

	localFirst := New[item](Prepend)
	localFirst.Upsert(created)               // local REST success
	localFirst.UpsertIfAbsent(created)       // echoed push event

	remoteFirst := New[item](Prepend)
	remoteFirst.UpsertIfAbsent(created)      // push event arrives first
	remoteFirst.Upsert(created)              // local REST success lands after

	assert.Equal(t, localFirst.List(), remoteFirst.List())
	assert.Equal(t, 1, localFirst.Len())
}

func TestUpdateDeleteInterleavingsConverge(t *testing.T) {
	seed := []item{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	updated := item{ID: "2", Name: "b2"}

	updateFirst := New[item](Append)
	updateFirst.ReplaceAll(seed)
	updateFirst.Upsert(updated)
	updateFirst.Remove("1")

	deleteFirst := New[item](Append)
	deleteFirst.ReplaceAll(seed)
	deleteFirst.Remove("1")
	deleteFirst.Upsert(updated)

	assert.Equal(t, updateFirst.List(), deleteFirst.List())
}

func TestReplaceAll(t *testing.T) {
	s := New[item](Prepend)
	s.Upsert(item{ID: "old"})

	s.ReplaceAll([]item{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.List()))

	_, ok := s.Get("old")
	assert.False(t, ok)
}

func TestAllIsRestartable(t *testing.T) {
	s := New[item](Append)
	s.ReplaceAll([]item{{ID: "1"}, {ID: "2"}, {ID: "3"}})

	seq := s.All()

	var first []string
	for e := range seq {
		first = append(first, e.ID)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, first)

	var second []string
	for e := range seq {
		second = append(second, e.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, second)
}

func TestFilter(t *testing.T) {
	items := []item{
		{ID: "1", Name: "My Project"},
		{ID: "2", Name: "Other"},
	}

	got := Filter(items, "proj", func(i item) string { return i.Name })
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Equal(t, items, Filter(items, "", func(i item) string { return i.Name }))
	assert.Equal(t, items, Filter(items, "   ", func(i item) string { return i.Name }))
	assert.Empty(t, Filter(items, "zzz", func(i item) string { return i.Name }))

	// Case-insensitive both ways.
	got = Filter(items, "OTHER", func(i item) string { return i.Name })
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}
