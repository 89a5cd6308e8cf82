package forum

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnest/forum/internal/cache"
	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/pkg/config"
)

func newCachedService(t *testing.T) (*Service, *cache.Pages) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := cache.New(&config.RedisConfig{URL: "redis://" + s.Addr(), Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	pages := cache.NewPages(c, time.Minute)
	svc, _ := newTestService(t, WithCache(pages))
	return svc, pages
}

func TestCachedListsSeeMutations(t *testing.T) {
	svc, pages := newCachedService(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "u1", "Biology", "")
	require.NoError(t, err)

	first, err := svc.SearchGroups(ctx, "", 1, 0)
	require.NoError(t, err)
	require.Len(t, first.Rows, 1)

	_, err = svc.CreateGroup(ctx, "u2", "Botany", "")
	require.NoError(t, err)
	second, err := svc.SearchGroups(ctx, "", 1, 0)
	require.NoError(t, err)
	assert.Len(t, second.Rows, 2)

	p, err := svc.CreatePost(ctx, "u1", g.GroupID, "Cells", "")
	require.NoError(t, err)
	posts, err := svc.SearchGroupPosts(ctx, g.GroupID, "", 1, 0)
	require.NoError(t, err)
	require.Len(t, posts.Rows, 1)
	assert.EqualValues(t, 0, posts.Rows[0].Likes)

	_, err = svc.Like(ctx, "u2", models.PostTarget(p.PostID))
	require.NoError(t, err)
	posts, err = svc.SearchGroupPosts(ctx, g.GroupID, "", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, posts.Rows[0].Likes)

	gen, err := pages.Generation(ctx, ScopePosts)
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen)
}

func TestCachedPostListsLagOnViews(t *testing.T) {
	svc, pages := newCachedService(t)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, "u1", "Chemistry", "")
	require.NoError(t, err)
	p, err := svc.CreatePost(ctx, "u1", g.GroupID, "Titration", "")
	require.NoError(t, err)

	posts, err := svc.SearchGroupPosts(ctx, g.GroupID, "", 1, 0)
	require.NoError(t, err)
	require.Len(t, posts.Rows, 1)
	before, err := pages.Generation(ctx, ScopePosts)
	require.NoError(t, err)

	viewed, err := svc.GetPost(ctx, p.PostID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, viewed.Views)

	after, err := pages.Generation(ctx, ScopePosts)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	posts, err = svc.SearchGroupPosts(ctx, g.GroupID, "", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, posts.Rows[0].Views)
}
