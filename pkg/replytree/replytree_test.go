package replytree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id, parent string, children ...Reply) Reply {
	kind := "ParentComment"
	if parent == "p1" {
		kind = "ParentPost"
	}
	if children == nil {
		children = []Reply{}
	}
	return Reply{CommentID: id, Comment: "text " + id, ParentID: parent, ParentType: kind, Replies: int64(len(children)), Children: children}
}

// sampleTree:
//
//	c1
//	├── c2
//	│   └── c4
//	└── c3
//	c5
func sampleTree() []Reply {
	return []Reply{
		node("c1", "p1",
			node("c2", "c1", node("c4", "c2")),
			node("c3", "c1"),
		),
		node("c5", "p1"),
	}
}

func sameSlice(a, b []Reply) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return &a[0] == &b[0]
}

func TestUpdateNestedSharesUntouchedSubtrees(t *testing.T) {
	tree := sampleTree()

	updated := UpdateNested(tree, "c4", func(r Reply) Reply {
		r.Comment = "edited"
		return r
	})

	got, ok := Find(updated, "c4")
	require.True(t, ok)
	assert.Equal(t, "edited", got.Comment)

	original, _ := Find(tree, "c4")
	assert.Equal(t, "text c4", original.Comment, "input must not be mutated")

	assert.False(t, sameSlice(tree, updated), "root level is on the spine")
	assert.False(t, sameSlice(tree[0].Children, updated[0].Children), "c1 children are on the spine")
	assert.True(t, sameSlice(tree[0].Children[1].Children, updated[0].Children[1].Children), "c3 subtree untouched")
	assert.Equal(t, tree[1], updated[1], "c5 untouched")
}

func TestUpdateNestedMissingTargetReturnsInput(t *testing.T) {
	tree := sampleTree()
	calls := 0
	out := UpdateNested(tree, "nope", func(r Reply) Reply {
		calls++
		return r
	})
	assert.Zero(t, calls)
	assert.True(t, sameSlice(tree, out))
	assert.Nil(t, UpdateNested(nil, "c1", func(r Reply) Reply { return r }))
}

func TestAddReply(t *testing.T) {
	tree := sampleTree()
	fresh := node("c9", "c2")

	out := AddReply(tree, "c2", fresh)
	c2, _ := Find(out, "c2")
	require.Len(t, c2.Children, 2)
	assert.Equal(t, "c9", c2.Children[0].CommentID, "new replies go first")
	assert.EqualValues(t, 2, c2.Replies)

	again := AddReply(out, "c2", fresh)
	assert.True(t, sameSlice(out, again), "adding a present reply is a no-op")
	assert.Equal(t, 6, Count(again))

	unknown := AddReply(tree, "missing", fresh)
	assert.True(t, sameSlice(tree, unknown))
}

func TestAddRepliesDeduplicates(t *testing.T) {
	tree := sampleTree()
	liked := ToggleLike(tree, "c3")

	refreshed := node("c3", "c1")
	refreshed.Comment = "server copy"
	refreshed.Likes = 10
	page := []Reply{refreshed, node("c6", "c1"), node("c4", "c2"), node("c6", "c1")}

	out := AddReplies(liked, "c1", page)
	c1, _ := Find(out, "c1")
	var got []string
	for _, r := range c1.Children {
		got = append(got, r.CommentID)
	}
	assert.Equal(t, []string{"c2", "c3", "c6"}, got, "c4 lives under c2 and must not be duplicated")

	c3, _ := Find(out, "c3")
	assert.Equal(t, "server copy", c3.Comment)
	assert.True(t, c3.IsLiked, "local like state survives a refresh")
	assert.EqualValues(t, 10, c3.Likes)

	c2, _ := Find(out, "c2")
	require.Len(t, c2.Children, 1, "materialized children survive a refresh")
	assert.Equal(t, 6, Count(out))
}

func TestAddRepliesIsIdempotent(t *testing.T) {
	tree := sampleTree()
	page := []Reply{node("c7", "c5"), node("c8", "c5")}

	once := AddReplies(tree, "c5", page)
	twice := AddReplies(once, "c5", page)
	assert.Equal(t, once, twice)
	assert.Equal(t, 7, Count(twice))

	assert.True(t, sameSlice(tree, AddReplies(tree, "missing", page)))
	assert.True(t, sameSlice(tree, AddReplies(tree, "c5", nil)))
}

func TestMergeRootsAndPrependRoot(t *testing.T) {
	var tree []Reply
	tree = MergeRoots(tree, []Reply{node("c1", "p1"), node("c2", "p1")})
	tree = MergeRoots(tree, []Reply{node("c2", "p1"), node("c3", "p1")})
	tree = PrependRoot(tree, node("c0", "p1"))
	tree = PrependRoot(tree, node("c2", "p1"))

	var got []string
	for _, r := range tree {
		got = append(got, r.CommentID)
	}
	assert.Equal(t, []string{"c0", "c1", "c2", "c3"}, got)
}

func TestEditComment(t *testing.T) {
	tree := sampleTree()
	out := EditComment(tree, "c2", "updated")
	c2, _ := Find(out, "c2")
	assert.Equal(t, "updated", c2.Comment)
	require.Len(t, c2.Children, 1)
}

func TestToggleLike(t *testing.T) {
	tree := sampleTree()

	liked := ToggleLike(tree, "c4")
	c4, _ := Find(liked, "c4")
	assert.True(t, c4.IsLiked)
	assert.EqualValues(t, 1, c4.Likes)

	unliked := ToggleLike(liked, "c4")
	c4, _ = Find(unliked, "c4")
	assert.False(t, c4.IsLiked)
	assert.EqualValues(t, 0, c4.Likes)

	// a liked node whose count is already zero stays at zero
	odd := UpdateNested(tree, "c5", func(r Reply) Reply {
		r.IsLiked = true
		return r
	})
	odd = ToggleLike(odd, "c5")
	c5, _ := Find(odd, "c5")
	assert.EqualValues(t, 0, c5.Likes)
	assert.False(t, c5.IsLiked)
}

func TestRemoveReply(t *testing.T) {
	tree := sampleTree()

	out := RemoveReply(tree, "c1", "c2")
	assert.False(t, Contains(out, "c2"))
	assert.False(t, Contains(out, "c4"), "subtree goes with the node")
	c1, _ := Find(out, "c1")
	assert.EqualValues(t, 1, c1.Replies)
	assert.Equal(t, 3, Count(out))

	same := RemoveReply(out, "c1", "c2")
	c1, _ = Find(same, "c1")
	assert.EqualValues(t, 1, c1.Replies, "removing an absent child keeps the count")

	assert.Len(t, RemoveRoot(tree, "c5"), 1)
	assert.True(t, sameSlice(tree, RemoveRoot(tree, "zzz")))
}

func TestRemoveLocatesParent(t *testing.T) {
	tree := sampleTree()
	assert.False(t, Contains(Remove(tree, "c4"), "c4"))
	assert.Len(t, Remove(tree, "c1"), 1)
	assert.True(t, sameSlice(tree, Remove(tree, "zzz")))
}

func TestLoaded(t *testing.T) {
	r := node("c1", "p1", node("c2", "c1"))
	assert.True(t, r.Loaded())
	r.Replies = 5
	assert.False(t, r.Loaded())
}
