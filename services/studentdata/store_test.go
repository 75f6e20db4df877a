package studentdata

import (
	"context"
	"testing"
	"time"

	"snassist-backend/lib/scrapers/schulnetz"
	"snassist-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) Store {
	testutil.Setup(t, "test:services/studentdata")

	store, err := NewStore(testutil.OpenDB(t, ""))
	require.NoError(t, err)
	return store
}

func TestStorePushPull(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, _, err := store.PullLatest(ctx, "alice")
	require.ErrorIs(t, err, ErrNoSnapshot)

	first := Graph{
		Subjects: []schulnetz.Subject{{Id: "s1", Abbreviation: "MA-2a-HUB", Name: "Mathematik"}},
	}
	second := Graph{
		Subjects: []schulnetz.Subject{{Id: "s2", Abbreviation: "MA-2a-HUB", Name: "Mathematik"}},
		Grades: []schulnetz.Grade{
			{Id: "g1", SubjectAbbreviation: "MA-2a-HUB", Title: "Algebra", Value: 5.5, Weight: 1},
		},
	}

	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)
	require.NoError(t, store.Push(ctx, "alice", t0, first))
	require.NoError(t, store.Push(ctx, "alice", t1, second))

	graph, at, err := store.PullLatest(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, t1.Unix(), at.Unix())
	require.Len(t, graph.Grades, 1)
	require.Equal(t, "Algebra", graph.Grades[0].Title)

	// snapshots are per user
	_, _, err = store.PullLatest(ctx, "bob")
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStoreGraphRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	graph := Graph{
		Teachers: []schulnetz.Teacher{
			{Id: "t1", Abbreviation: "HUB", LastName: "Huber", FirstName: "Anna", SubjectIds: []string{"s1"}},
		},
		Subjects: []schulnetz.Subject{
			{Id: "s1", Abbreviation: "MA-2a-HUB", Name: "Mathematik", Average: 5.1666, TeacherId: "t1"},
		},
	}
	require.NoError(t, store.Push(ctx, "alice", time.Unix(1000, 0), graph))

	restored, _, err := store.PullLatest(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, graph, restored)
}
