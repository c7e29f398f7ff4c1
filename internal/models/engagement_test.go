package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestToggleLikeIsInvolution(t *testing.T) {
	var e Engagement
	now := time.Now()

	assert.True(t, e.ToggleLike(7, "ana", now))
	assert.Len(t, e.Likes, 1)
	assert.True(t, e.HasLiked(7))

	assert.False(t, e.ToggleLike(7, "ana", now))
	assert.Len(t, e.Likes, 0)
	assert.False(t, e.HasLiked(7))
}

func TestToggleLikeKeepsOtherUsers(t *testing.T) {
	var e Engagement
	now := time.Now()
	e.ToggleLike(1, "a", now)
	e.ToggleLike(2, "b", now)
	e.ToggleLike(3, "c", now)

	e.ToggleLike(2, "b", now)

	require.Len(t, e.Likes, 2)
	assert.Equal(t, uint(1), e.Likes[0].UserID)
	assert.Equal(t, uint(3), e.Likes[1].UserID)
}

func TestToggleReaction(t *testing.T) {
	e := Engagement{Comments: datatypes.JSONSlice[Comment]{{ID: "c1", AuthorID: 1}}}

	t.Run("same emoji twice removes it", func(t *testing.T) {
		got, ok := e.ToggleReaction("c1", Reaction{ID: "r1", AuthorID: 2, Type: "👍"})
		require.True(t, ok)
		assert.Len(t, got, 1)

		got, ok = e.ToggleReaction("c1", Reaction{ID: "r2", AuthorID: 2, Type: "👍"})
		require.True(t, ok)
		assert.Len(t, got, 0)
	})

	t.Run("different emojis are additive", func(t *testing.T) {
		e.ToggleReaction("c1", Reaction{ID: "r3", AuthorID: 2, Type: "👍"})
		got, _ := e.ToggleReaction("c1", Reaction{ID: "r4", AuthorID: 2, Type: "❤️"})
		assert.Len(t, got, 2)
	})

	t.Run("unknown comment", func(t *testing.T) {
		_, ok := e.ToggleReaction("missing", Reaction{AuthorID: 2, Type: "👍"})
		assert.False(t, ok)
	})
}

func TestAddReply(t *testing.T) {
	e := Engagement{Comments: datatypes.JSONSlice[Comment]{{ID: "c1"}}}

	assert.True(t, e.AddReply("c1", Reply{ID: "r1", Text: "hi"}))
	assert.False(t, e.AddReply("nope", Reply{ID: "r2"}))
	assert.Len(t, e.Comments[0].Replies, 1)
}

func TestAddCloner(t *testing.T) {
	var e Engagement
	assert.True(t, e.AddCloner(5, true))
	assert.False(t, e.AddCloner(5, true))
	assert.True(t, e.AddCloner(5, false))
	assert.Equal(t, datatypes.JSONSlice[uint]{5, 5}, e.ClonedBy)
}

func TestRenameAuthor(t *testing.T) {
	e := Engagement{
		Likes: datatypes.JSONSlice[Like]{{UserID: 1, UserName: "old"}, {UserID: 2, UserName: "bob"}},
		Comments: datatypes.JSONSlice[Comment]{{
			ID: "c1", AuthorID: 1, AuthorName: "old",
			Replies:   []Reply{{ID: "r1", AuthorID: 1, AuthorName: "old"}, {ID: "r2", AuthorID: 2, AuthorName: "bob"}},
			Reactions: []Reaction{{ID: "x1", AuthorID: 1, AuthorName: "old", Type: "🔥"}},
		}},
	}

	assert.Equal(t, 4, e.RenameAuthor(1, "new"))
	assert.Equal(t, 0, e.RenameAuthor(1, "new"), "second pass is a no-op")
	assert.Equal(t, "new", e.Comments[0].Replies[0].AuthorName)
	assert.Equal(t, "bob", e.Comments[0].Replies[1].AuthorName)
}

func TestBeforeSaveFillsNilLists(t *testing.T) {
	var p Plan
	require.NoError(t, p.BeforeSave(nil))
	b, err := json.Marshal(p)
	require.NoError(t, err)
	for _, key := range []string{"place_bucket", "itinerary", "likes", "comments", "cloned_by"} {
		assert.Contains(t, string(b), `"`+key+`":[]`)
	}

	var pub Publication
	require.NoError(t, pub.BeforeSave(nil))
	assert.NotNil(t, pub.Likes)
	assert.NotNil(t, pub.Comments)
	assert.NotNil(t, pub.ClonedBy)
}

func TestPublicationSnapshotColumn(t *testing.T) {
	pub := Publication{PlanSnapshot: datatypes.NewJSONType(PlanSnapshot{
		City:        "Paris",
		PlaceBucket: []Place{{ID: "p1", Name: "Louvre"}},
	})}
	v, err := pub.PlanSnapshot.Value()
	require.NoError(t, err)

	var out datatypes.JSONType[PlanSnapshot]
	switch raw := v.(type) {
	case string:
		require.NoError(t, out.Scan(raw))
	case []byte:
		require.NoError(t, out.Scan(raw))
	default:
		t.Fatalf("unexpected column value %T", v)
	}
	assert.Equal(t, "Paris", out.Data().City)
	assert.Equal(t, "Louvre", out.Data().PlaceBucket[0].Name)

	b, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"plan_snapshot":{"city":"Paris"`)
}

func TestPlanSnapshotIsIndependent(t *testing.T) {
	p := Plan{
		City:        "Paris",
		PlaceBucket: datatypes.JSONSlice[Place]{{ID: "p1", Name: "Louvre"}},
		Itinerary:   datatypes.JSONSlice[ItineraryDay]{{DayIndex: 0, Places: []Place{{ID: "p1", Name: "Louvre"}}}},
	}
	snap := p.Snapshot()

	p.PlaceBucket[0].Name = "changed"
	p.Itinerary[0].Places[0].Name = "changed"

	assert.Equal(t, "Louvre", snap.PlaceBucket[0].Name)
	assert.Equal(t, "Louvre", snap.Itinerary[0].Places[0].Name)
}
