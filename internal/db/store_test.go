package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusnest/forum/internal/models"
	"github.com/campusnest/forum/internal/storage"
)

// newMockStore opens a Store over sqlmock. Implicit per-statement
// transactions are off so the expectations show only the store's own.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewStore(&DB{DB: gdb}), mock
}

var commentColumns = []string{"comment_id", "comment", "uid", "parent_id", "parent_type", "replies", "likes", "created_at", "updated_at"}

func TestStore_CreatePostBumpsGroupInSameTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "forum_groups" SET "post_count"=post_count \+ \$1`).
		WithArgs(int64(1), "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "forum_posts"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := &models.Post{GroupID: "g1", Title: "Lab 3", UID: "alice", Likes: 9}
	require.NoError(t, s.CreatePost(context.Background(), p))
	assert.NotEmpty(t, p.PostID)
	assert.Zero(t, p.Likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreatePostInMissingGroupRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "forum_groups" SET "post_count"=post_count \+ \$1`).
		WithArgs(int64(1), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.CreatePost(context.Background(), &models.Post{GroupID: "missing", Title: "x", UID: "alice"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateReplyBumpsParentComment(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "forum_comments" SET "replies"=replies \+ \$1`).
		WithArgs(int64(1), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "forum_comments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &models.Comment{Comment: "same here", UID: "bob", ParentID: "c1", ParentType: models.ParentComment}
	require.NoError(t, s.CreateReply(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UnlikeIsFlooredAtZero(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "forum_posts" SET "likes"=GREATEST\(likes - \$1, 0\)`).
		WithArgs(int64(1), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "forum_posts" WHERE post_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "group_id", "title", "likes"}).
			AddRow("p1", "g1", "Lab 3", 0))
	mock.ExpectCommit()

	likes, err := s.AdjustLikes(context.Background(), models.PostTarget("p1"), -1)
	require.NoError(t, err)
	assert.Zero(t, likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteCommentCascadesAndDecrementsParent(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "forum_comments" WHERE comment_id = \$1`).
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("c1", "root", "alice", "p1", string(models.ParentPost), 2, 0, now, now))
	mock.ExpectExec(`WITH RECURSIVE tree AS`).
		WithArgs(string(models.ParentComment), "c1", string(models.ParentComment)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM "forum_comments" WHERE comment_id = \$1`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "forum_posts" SET "replies"=GREATEST\(replies - \$1, 0\)`).
		WithArgs(int64(1), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteComment(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteCommentRollsBackWhenCascadeFails(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "forum_comments" WHERE comment_id = \$1`).
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("c1", "root", "alice", "p1", string(models.ParentPost), 2, 0, now, now))
	mock.ExpectExec(`WITH RECURSIVE tree AS`).WillReturnError(boom)
	mock.ExpectRollback()

	err := s.DeleteComment(context.Background(), "c1")
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteGroupCascadesThroughPosts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "post_id" FROM "forum_posts" WHERE group_id = \$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow("p1").AddRow("p2"))
	mock.ExpectExec(`WITH RECURSIVE tree AS`).
		WithArgs(string(models.ParentPost), "p1", "p2", string(models.ParentComment)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "forum_posts" WHERE group_id = \$1`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "forum_groups" WHERE group_id = \$1`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteGroup(context.Background(), "g1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SearchGroupsEscapesWildcards(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "forum_groups" WHERE group_name ILIKE \$1`).
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))
	mock.ExpectQuery(`SELECT \* FROM "forum_groups" WHERE group_name ILIKE \$1 ORDER BY group_name ASC,group_id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"group_id", "group_name"}).
			AddRow("g1", "50%_off deals").
			AddRow("g2", "50%_off textbooks"))

	page, err := s.SearchGroups(context.Background(), storage.GroupQuery{
		Query: " 50%_off ",
		Page:  storage.NewPageRequest(2, 4),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 6, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "g1", page.Rows[0].GroupID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_IncrementViewsOnMissingPost(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "forum_posts" SET "views"=views \+ \$1`).
		WithArgs(int64(1), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.IncrementViews(context.Background(), "gone"), storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
