package forumclient

import (
	"context"
	"errors"
	"sync"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
	"github.com/campusnest/forum/pkg/replytree"
)

// ErrStale is returned when a response arrived after its view was reset or
// moved on to another query. The response has been discarded.
var ErrStale = errors.New("view changed before the response arrived")

// generation tracks which requests of a view are still wanted. Every reset
// bumps the generation and cancels the fetches started before it.
type generation struct {
	mu       sync.Mutex
	current  uint64
	seq      uint64
	inflight map[uint64]context.CancelFunc
}

type ticket struct {
	gen uint64
	id  uint64
}

// start registers a request. Fetches are cancelable; mutations are not, since
// the server applies them regardless of what the view does next.
func (g *generation) start(ctx context.Context, cancelable bool) (context.Context, ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.register(ctx, cancelable)
}

// restart advances the generation and registers a fetch for the new one in
// the same critical section, so no other request can slip in between.
func (g *generation) restart(ctx context.Context) (context.Context, ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return g.register(ctx, true)
}

// register must be called with g.mu held.
func (g *generation) register(ctx context.Context, cancelable bool) (context.Context, ticket) {
	g.seq++
	t := ticket{gen: g.current, id: g.seq}
	if !cancelable {
		return ctx, t
	}
	ctx, cancel := context.WithCancel(ctx)
	if g.inflight == nil {
		g.inflight = make(map[uint64]context.CancelFunc)
	}
	g.inflight[t.id] = cancel
	return ctx, t
}

// finish must be called with g.mu held. It reports whether t is current.
func (g *generation) finish(t ticket) bool {
	if cancel, ok := g.inflight[t.id]; ok {
		cancel()
		delete(g.inflight, t.id)
	}
	return t.gen == g.current
}

// advance must be called with g.mu held.
func (g *generation) advance() {
	g.current++
	for id, cancel := range g.inflight {
		cancel()
		delete(g.inflight, id)
	}
}

// ListView is a searchable, paged list. Every Search or Goto cancels the
// fetch in flight, and only the latest one may update the view.
type ListView[T any] struct {
	fetch func(ctx context.Context, query string, page int) (storage.Page[T], error)
	gen   generation
	query string
	page  storage.Page[T]
}

// GroupsView lists groups.
func (c *Client) GroupsView() *ListView[models.Group] {
	return &ListView[models.Group]{fetch: func(ctx context.Context, q string, page int) (storage.Page[models.Group], error) {
		return c.SearchGroups(ctx, q, page, 0)
	}}
}

// PostsView lists the posts of groupID, or of every group when groupID is empty.
func (c *Client) PostsView(groupID string) *ListView[models.Post] {
	return &ListView[models.Post]{fetch: func(ctx context.Context, q string, page int) (storage.Page[models.Post], error) {
		if groupID == "" {
			return c.SearchPosts(ctx, q, page, 0)
		}
		gp, err := c.GroupPosts(ctx, groupID, q, page, 0)
		return gp.Page, err
	}}
}

// Search shows the first page of results for query.
func (v *ListView[T]) Search(ctx context.Context, query string) error {
	return v.load(ctx, query, 1)
}

// Goto shows another page of the current query.
func (v *ListView[T]) Goto(ctx context.Context, page int) error {
	v.gen.mu.Lock()
	query := v.query
	v.gen.mu.Unlock()
	return v.load(ctx, query, page)
}

func (v *ListView[T]) load(ctx context.Context, query string, page int) error {
	ctx, t := v.gen.restart(ctx)
	p, err := v.fetch(ctx, query, page)

	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	if !v.gen.finish(t) {
		return ErrStale
	}
	if err != nil {
		return err
	}
	v.query, v.page = query, p
	return nil
}

// Current returns the query and page on display.
func (v *ListView[T]) Current() (string, storage.Page[T]) {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	return v.query, v.page
}

// Reset cancels pending fetches and clears the view.
func (v *ListView[T]) Reset() {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	v.gen.advance()
	v.query, v.page = "", storage.Page[T]{}
}

// ThreadView holds the partially loaded comment tree of one post. Root pages
// and child pages are fetched on demand and merged into the tree; local
// mutations are applied once the server has accepted them.
type ThreadView struct {
	client *Client
	postID string

	gen        generation
	tree       []replytree.Reply
	rootPages  int
	totalPages int
	childPages map[string]int
}

// Thread opens a view on the discussion of postID.
func (c *Client) Thread(postID string) *ThreadView {
	return &ThreadView{client: c, postID: postID, childPages: map[string]int{}}
}

// Load discards the current tree and fetches the first page of root comments.
func (v *ThreadView) Load(ctx context.Context) error {
	v.gen.mu.Lock()
	v.gen.advance()
	v.clear()
	ctx, t := v.gen.register(ctx, true)
	v.gen.mu.Unlock()
	return v.fetchRoots(ctx, t, 1)
}

// LoadMore fetches the next page of root comments.
func (v *ThreadView) LoadMore(ctx context.Context) error {
	v.gen.mu.Lock()
	next := v.rootPages + 1
	ctx, t := v.gen.register(ctx, true)
	v.gen.mu.Unlock()
	return v.fetchRoots(ctx, t, next)
}

func (v *ThreadView) fetchRoots(ctx context.Context, t ticket, page int) error {
	p, err := v.client.Replies(ctx, models.PostParent(v.postID), page)

	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	if !v.gen.finish(t) {
		return ErrStale
	}
	if err != nil {
		return err
	}
	v.tree = replytree.MergeRoots(v.tree, p.Rows)
	if page > v.rootPages {
		v.rootPages = page
	}
	v.totalPages = p.TotalPages
	return nil
}

// HasMore reports whether more root pages exist on the server.
func (v *ThreadView) HasMore() bool {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	return v.rootPages < v.totalPages
}

// Expand fetches the next page of direct replies of a loaded comment.
func (v *ThreadView) Expand(ctx context.Context, commentID string) error {
	v.gen.mu.Lock()
	next := v.childPages[commentID] + 1
	ctx, t := v.gen.register(ctx, true)
	v.gen.mu.Unlock()
	return v.fetchChildren(ctx, t, commentID, next)
}

func (v *ThreadView) fetchChildren(ctx context.Context, t ticket, commentID string, page int) error {
	p, err := v.client.Replies(ctx, models.CommentParent(commentID), page)

	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	if !v.gen.finish(t) {
		return ErrStale
	}
	if err != nil {
		return err
	}
	v.tree = replytree.AddReplies(v.tree, commentID, p.Rows)
	if page > v.childPages[commentID] {
		v.childPages[commentID] = page
	}
	return nil
}

// Reply posts a comment. An empty parentID replies to the post itself.
func (v *ThreadView) Reply(ctx context.Context, parentID, content string) (replytree.Reply, error) {
	parent := models.CommentParent(parentID)
	if parentID == "" {
		parent = models.PostParent(v.postID)
	}

	ctx, t := v.gen.start(ctx, false)
	r, err := v.client.Reply(ctx, parent, content)
	if err != nil {
		return replytree.Reply{}, err
	}
	return r, v.apply(t, func(tree []replytree.Reply) []replytree.Reply {
		if parentID == "" {
			return replytree.PrependRoot(tree, r)
		}
		return replytree.AddReply(tree, parentID, r)
	})
}

// Edit replaces the text of a comment.
func (v *ThreadView) Edit(ctx context.Context, commentID, content string) error {
	ctx, t := v.gen.start(ctx, false)
	c, err := v.client.UpdateComment(ctx, commentID, content)
	if err != nil {
		return err
	}
	return v.apply(t, func(tree []replytree.Reply) []replytree.Reply {
		return replytree.EditComment(tree, commentID, c.Comment)
	})
}

// ToggleLike likes a comment this view has not liked yet, and unlikes it
// otherwise. The server's count replaces the local one.
func (v *ThreadView) ToggleLike(ctx context.Context, commentID string) error {
	v.gen.mu.Lock()
	node, ok := replytree.Find(v.tree, commentID)
	v.gen.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	ctx, t := v.gen.start(ctx, false)
	adjust := v.client.Like
	if node.IsLiked {
		adjust = v.client.Unlike
	}
	n, err := adjust(ctx, models.CommentTarget(commentID))
	if err != nil {
		return err
	}
	return v.apply(t, func(tree []replytree.Reply) []replytree.Reply {
		return replytree.UpdateNested(tree, commentID, func(r replytree.Reply) replytree.Reply {
			r.IsLiked = !node.IsLiked
			r.Likes = n
			return r
		})
	})
}

// Delete removes a comment and its subtree. The server list it belonged to
// shifts left by one, so the last page loaded from that list is fetched again
// to pick up the row that moved onto it.
func (v *ThreadView) Delete(ctx context.Context, commentID string) error {
	v.gen.mu.Lock()
	node, loaded := replytree.Find(v.tree, commentID)
	v.gen.mu.Unlock()

	mctx, t := v.gen.start(ctx, false)
	if err := v.client.DeleteComment(mctx, commentID); err != nil {
		return err
	}
	if err := v.apply(t, func(tree []replytree.Reply) []replytree.Reply {
		delete(v.childPages, commentID)
		return replytree.Remove(tree, commentID)
	}); err != nil || !loaded {
		return err
	}
	return v.refill(ctx, node)
}

// refill refetches the last loaded page of the list removed once held.
func (v *ThreadView) refill(ctx context.Context, removed replytree.Reply) error {
	nested := models.ParentKind(removed.ParentType) == models.ParentComment
	v.gen.mu.Lock()
	page := v.rootPages
	if nested {
		page = v.childPages[removed.ParentID]
	}
	if page == 0 {
		v.gen.mu.Unlock()
		return nil
	}
	ctx, t := v.gen.register(ctx, true)
	v.gen.mu.Unlock()

	if nested {
		return v.fetchChildren(ctx, t, removed.ParentID, page)
	}
	return v.fetchRoots(ctx, t, page)
}

func (v *ThreadView) apply(t ticket, fn func([]replytree.Reply) []replytree.Reply) error {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	if !v.gen.finish(t) {
		return ErrStale
	}
	v.tree = fn(v.tree)
	return nil
}

// Tree returns the current tree. Trees are never modified in place, so the
// result stays valid after later updates.
func (v *ThreadView) Tree() []replytree.Reply {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	return v.tree
}

// Reset cancels pending fetches and forgets the loaded tree.
func (v *ThreadView) Reset() {
	v.gen.mu.Lock()
	defer v.gen.mu.Unlock()
	v.gen.advance()
	v.clear()
}

// clear must be called with v.gen.mu held.
func (v *ThreadView) clear() {
	v.tree = nil
	v.rootPages, v.totalPages = 0, 0
	v.childPages = map[string]int{}
}
