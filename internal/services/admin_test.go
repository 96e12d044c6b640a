package services

import (
	"context"
	"testing"
	"time"

	"commentbox/internal/models"
	"commentbox/internal/scope"
	"commentbox/internal/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminThreads_ScopedAndOrdered(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewAdminService(db)
	admin := testutils.CreateTestUser(db, testutils.AsStaff())
	root := testutils.CreateTestUser(db, testutils.AsSuperuser())
	site1 := testutils.CreateTestSite(db, []*models.User{admin})
	site2 := testutils.CreateTestSite(db, nil)
	quiet := testutils.CreateTestThread(db, site1, "/quiet")
	busy := testutils.CreateTestThread(db, site1, "/busy")
	elsewhere := testutils.CreateTestThread(db, site2, "/elsewhere")
	base := time.Now().UTC().Add(-time.Hour)
	testutils.CreateTestComment(db, busy, testutils.CreatedAt(base))
	testutils.CreateTestComment(db, busy, testutils.CreatedAt(base.Add(time.Minute)))
	ctx := context.Background()

	threads, err := svc.Threads(ctx, scopeOf(t, db, admin), ThreadQuery{})
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, busy.ID, threads[0].ID)
	assert.Equal(t, 2, threads[0].CommentCount)
	require.NotNil(t, threads[0].LastCommentAt)
	assert.Equal(t, quiet.ID, threads[1].ID)
	assert.Nil(t, threads[1].LastCommentAt)

	threads, err = svc.Threads(ctx, scopeOf(t, db, admin), ThreadQuery{SortBy: scope.SortThreadDate})
	require.NoError(t, err)
	assert.Equal(t, busy.ID, threads[0].ID)
	assert.Equal(t, quiet.ID, threads[1].ID)

	threads, err = svc.Threads(ctx, scopeOf(t, db, root), ThreadQuery{SiteID: site2.ID})
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, elsewhere.ID, threads[0].ID)

	_, err = svc.Threads(ctx, scopeOf(t, db, admin), ThreadQuery{SiteID: site2.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Threads(ctx, scopeOf(t, db, admin), ThreadQuery{Interval: "forever"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminComments_HiddenFilter(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewAdminService(db)
	admin := testutils.CreateTestUser(db, testutils.AsStaff())
	site := testutils.CreateTestSite(db, []*models.User{admin})
	other := testutils.CreateTestSite(db, nil)
	thread := testutils.CreateTestThread(db, site, "")
	foreign := testutils.CreateTestThread(db, other, "")
	testutils.CreateTestComment(db, thread)
	hidden := testutils.CreateTestComment(db, thread, testutils.HiddenComment())
	ctx := context.Background()

	page, err := svc.Comments(ctx, scopeOf(t, db, admin), thread.ID, false)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
	assert.Equal(t, int64(1), page.HiddenCount)

	page, err = svc.Comments(ctx, scopeOf(t, db, admin), thread.ID, true)
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, hidden.ID, page.Comments[0].ID)

	_, err = svc.Comments(ctx, scopeOf(t, db, admin), foreign.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminUsers_HiddenFilter(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewAdminService(db)
	admin := testutils.CreateTestUser(db, testutils.AsStaff())
	site := testutils.CreateTestSite(db, []*models.User{admin})
	thread := testutils.CreateTestThread(db, site, "")
	alice := testutils.CreateTestUser(db)
	bob := testutils.CreateTestUser(db)
	testutils.CreateTestComment(db, thread, testutils.ByUser(alice))
	testutils.CreateTestComment(db, thread, testutils.ByUser(bob))
	testutils.CreateTestComment(db, thread, testutils.ByUser(bob))
	testutils.CreateTestComment(db, thread, testutils.ByUser(admin))
	testutils.HideUserOn(db, bob, site)
	ctx := context.Background()

	page, err := svc.Users(ctx, scopeOf(t, db, admin), site.ID, false)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, alice.ID, page.Users[0].ID)
	assert.Equal(t, bob.ID, page.Users[1].ID)
	assert.Equal(t, int64(1), page.HiddenCount)

	page, err = svc.Users(ctx, scopeOf(t, db, admin), site.ID, true)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, bob.ID, page.Users[0].ID)
}
