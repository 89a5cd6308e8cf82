// Package replytree keeps a client-side, partially materialized comment tree
// in step with paginated one-level fetches and local mutations.
//
// Every function is pure: it never modifies its input and returns a tree that
// shares every subtree it did not have to touch. Only the path from the root
// to the changed node is copied, so callers can compare subtrees by slice
// identity to find out what changed.
package replytree

import "time"

// Reply is one node of the tree. Children holds the replies fetched so far,
// newest first; Replies is the server's count of direct children, which may be
// larger than len(Children) until every page has been loaded.
type Reply struct {
	CommentID  string    `json:"commentId"`
	Comment    string    `json:"comment"`
	UID        string    `json:"uid"`
	ParentID   string    `json:"parentId"`
	ParentType string    `json:"parentType"`
	Likes      int64     `json:"likes"`
	Replies    int64     `json:"replies"`
	IsLiked    bool      `json:"isLiked,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Children   []Reply   `json:"Replies"`
}

// Loaded reports whether every direct child of r is materialized.
func (r Reply) Loaded() bool {
	return int64(len(r.Children)) >= r.Replies
}

// UpdateNested returns a tree in which the node with the given id has been
// replaced by fn(node). The search is depth first. When no such node is
// materialized the input slice itself is returned.
func UpdateNested(tree []Reply, id string, fn func(Reply) Reply) []Reply {
	out, _ := updateNested(tree, id, fn)
	return out
}

func updateNested(tree []Reply, id string, fn func(Reply) Reply) ([]Reply, bool) {
	for i := range tree {
		if tree[i].CommentID == id {
			out := clone(tree)
			out[i] = fn(tree[i])
			return out, true
		}
		if len(tree[i].Children) == 0 {
			continue
		}
		if children, ok := updateNested(tree[i].Children, id, fn); ok {
			out := clone(tree)
			out[i].Children = children
			return out, true
		}
	}
	return tree, false
}

// Find returns the node with the given id.
func Find(tree []Reply, id string) (Reply, bool) {
	for _, r := range tree {
		if r.CommentID == id {
			return r, true
		}
		if found, ok := Find(r.Children, id); ok {
			return found, true
		}
	}
	return Reply{}, false
}

// Contains reports whether id is materialized anywhere in the tree.
func Contains(tree []Reply, id string) bool {
	_, ok := Find(tree, id)
	return ok
}

// Count returns the number of materialized nodes.
func Count(tree []Reply) int {
	n := len(tree)
	for _, r := range tree {
		n += Count(r.Children)
	}
	return n
}

// AddReply puts a freshly created reply at the front of its parent's
// children and counts it. A reply that is already present is left alone.
func AddReply(tree []Reply, parentID string, reply Reply) []Reply {
	if Contains(tree, reply.CommentID) {
		return tree
	}
	return UpdateNested(tree, parentID, func(parent Reply) Reply {
		parent.Children = prepend(parent.Children, reply)
		parent.Replies++
		return parent
	})
}

// AddReplies appends a fetched page of children to the parent. Rows the
// parent already holds refresh their scalar fields and keep their own
// children and like state; rows materialized elsewhere are dropped.
func AddReplies(tree []Reply, parentID string, page []Reply) []Reply {
	parent, ok := Find(tree, parentID)
	if !ok || len(page) == 0 {
		return tree
	}
	merged := merge(parent.Children, page, ids(tree))
	return UpdateNested(tree, parentID, func(p Reply) Reply {
		p.Children = merged
		return p
	})
}

// MergeRoots appends a fetched page of root comments with the same rules as
// AddReplies.
func MergeRoots(tree []Reply, page []Reply) []Reply {
	return merge(tree, page, ids(tree))
}

// PrependRoot puts a freshly created root comment at the front.
func PrependRoot(tree []Reply, reply Reply) []Reply {
	if Contains(tree, reply.CommentID) {
		return tree
	}
	return prepend(tree, reply)
}

// EditComment replaces the text of a node.
func EditComment(tree []Reply, id, text string) []Reply {
	return UpdateNested(tree, id, func(r Reply) Reply {
		r.Comment = text
		return r
	})
}

// ToggleLike flips the local like state of a node and moves its like count
// with it. The count never drops below zero.
func ToggleLike(tree []Reply, id string) []Reply {
	return UpdateNested(tree, id, func(r Reply) Reply {
		if r.IsLiked {
			r.IsLiked = false
			if r.Likes > 0 {
				r.Likes--
			}
			return r
		}
		r.IsLiked = true
		r.Likes++
		return r
	})
}

// RemoveReply drops a direct child from a parent along with its subtree.
func RemoveReply(tree []Reply, parentID, childID string) []Reply {
	return UpdateNested(tree, parentID, func(parent Reply) Reply {
		kept, removed := without(parent.Children, childID)
		if removed {
			parent.Children = kept
			if parent.Replies > 0 {
				parent.Replies--
			}
		}
		return parent
	})
}

// RemoveRoot drops a root comment along with its subtree.
func RemoveRoot(tree []Reply, id string) []Reply {
	kept, _ := without(tree, id)
	return kept
}

// Remove drops a node wherever it sits, using its parent reference when the
// node is materialized below another comment.
func Remove(tree []Reply, id string) []Reply {
	node, ok := Find(tree, id)
	if !ok {
		return tree
	}
	if kept, removed := without(tree, id); removed {
		return kept
	}
	return RemoveReply(tree, node.ParentID, id)
}

func merge(existing, page []Reply, seen map[string]struct{}) []Reply {
	if len(page) == 0 {
		return existing
	}
	pos := make(map[string]int, len(existing))
	for i, r := range existing {
		pos[r.CommentID] = i
	}
	out := clone(existing)
	changed := false
	for _, r := range page {
		if i, ok := pos[r.CommentID]; ok {
			r.Children = out[i].Children
			r.IsLiked = out[i].IsLiked
			out[i] = r
			changed = true
			continue
		}
		if _, ok := seen[r.CommentID]; ok {
			continue
		}
		pos[r.CommentID] = len(out)
		seen[r.CommentID] = struct{}{}
		out = append(out, r)
		changed = true
	}
	if !changed {
		return existing
	}
	return out
}

func ids(tree []Reply) map[string]struct{} {
	set := make(map[string]struct{}, len(tree))
	var walk func([]Reply)
	walk = func(level []Reply) {
		for _, r := range level {
			set[r.CommentID] = struct{}{}
			walk(r.Children)
		}
	}
	walk(tree)
	return set
}

func prepend(level []Reply, r Reply) []Reply {
	out := make([]Reply, 0, len(level)+1)
	out = append(out, r)
	return append(out, level...)
}

func without(level []Reply, id string) ([]Reply, bool) {
	for i, r := range level {
		if r.CommentID == id {
			out := make([]Reply, 0, len(level)-1)
			out = append(out, level[:i]...)
			return append(out, level[i+1:]...), true
		}
	}
	return level, false
}

func clone(level []Reply) []Reply {
	out := make([]Reply, len(level))
	copy(out, level)
	return out
}
