package services

import (
	"context"
	"testing"

	"commentbox/internal/models"
	"commentbox/internal/testutils"
	"commentbox/internal/widget"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThread_TitlePrecedence(t *testing.T) {
	th := models.Thread{URL: "/post/1"}
	assert.Equal(t, "/post/1", th.Title())
	th.H1Title = "h1"
	assert.Equal(t, "h1", th.Title())
	th.PageTitle = "page"
	assert.Equal(t, "page", th.Title())
	th.SelectorTitle = "selector"
	assert.Equal(t, "selector", th.Title())
}

func TestEnsureThread_CreatesOnce(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewThreadService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	ctx := context.Background()

	first, created, err := svc.EnsureThread(ctx, site, "/article")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.EnsureThread(ctx, site, "/article")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Thread{}).Where("site_id = ?", site.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	_, _, err = svc.EnsureThread(ctx, site, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestThreadInfo(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewThreadService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	who := anon()
	who.Session().SetAllComments()

	info, err := svc.Info(context.Background(), site, "/page", Titles{Page: "Page title", H1: "Heading"}, who)
	require.NoError(t, err)

	assert.True(t, info.CommentsEnabled)
	assert.False(t, who.Session().AllComments())
	assert.GreaterOrEqual(t, info.AvatarNum, 1)
	assert.LessOrEqual(t, info.AvatarNum, 28)
	assert.Equal(t, info.AvatarNum, who.Session().AvatarNum())

	var stored models.Thread
	require.NoError(t, db.First(&stored, info.ThreadID).Error)
	assert.Equal(t, "Page title", stored.Title())
	assert.Equal(t, "Heading", stored.H1Title)

	// the avatar sticks for the session
	again, err := svc.Info(context.Background(), site, "/page", Titles{}, who)
	require.NoError(t, err)
	assert.Equal(t, info.ThreadID, again.ThreadID)
	assert.Equal(t, info.AvatarNum, again.AvatarNum)
}

func TestCommentCount_VisibleOnly(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewThreadService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	thread := testutils.CreateTestThread(db, site, "/counted")
	testutils.CreateTestComment(db, thread)
	testutils.CreateTestComment(db, thread)
	testutils.CreateTestComment(db, thread, testutils.HiddenComment())

	count, err := svc.CommentCount(context.Background(), site, "/counted")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = svc.CommentCount(context.Background(), site, "/missing")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPost_CreatesThreadOnceAndReusesIt(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewCommentService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	who := anon()
	ctx := context.Background()

	first, err := svc.Post(ctx, site, PostInput{ThreadURL: "/new-page", Text: "first", PosterName: "Ann"}, who)
	require.NoError(t, err)
	second, err := svc.Post(ctx, site, PostInput{ThreadURL: "/new-page", Text: "second", PosterName: "Ann"}, who)
	require.NoError(t, err)

	assert.Equal(t, first.ThreadID, second.ThreadID)
	var count int64
	db.Model(&models.Thread{}).Where("site_id = ? AND url = ?", site.ID, "/new-page").Count(&count)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, []uint{first.ID, second.ID}, who.Session().IDs(widget.PostedComments))
	assert.True(t, who.Session().AllComments())
	assert.Equal(t, 6, second.AvatarNum)
	assert.Nil(t, second.UserID)
}

func TestPost_Validation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewCommentService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	other := testutils.CreateTestSite(db, nil)
	thread := testutils.CreateTestThread(db, site, "")
	foreign := testutils.CreateTestThread(db, other, "")
	closed := testutils.CreateTestThread(db, site, "")
	db.Model(closed).UpdateColumn("allow_comments", false)
	ctx := context.Background()

	_, err := svc.Post(ctx, site, PostInput{ThreadID: thread.ID, Text: "hi"}, anon())
	assert.ErrorIs(t, err, ErrValidation, "anonymous posts need a name")

	_, err = svc.Post(ctx, site, PostInput{ThreadID: thread.ID, PosterName: "Ann"}, anon())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, site, PostInput{ThreadID: foreign.ID, Text: "hi", PosterName: "Ann"}, anon())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, site, PostInput{ThreadID: closed.ID, Text: "hi", PosterName: "Ann"}, anon())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Post(ctx, site, PostInput{Text: "hi", PosterName: "Ann"}, anon())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPost_Accounts(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewCommentService(db, testWidget)
	site := testutils.CreateTestSite(db, nil)
	thread := testutils.CreateTestThread(db, site, "")
	user := testutils.CreateTestUser(db, testutils.WithFullName("Jo"))
	ctx := context.Background()

	c, err := svc.Post(ctx, site, PostInput{ThreadID: thread.ID, Text: "hello", IPAddress: "10.0.0.1"}, as(user))
	require.NoError(t, err)
	assert.Equal(t, "Jo", c.PosterName)
	require.NotNil(t, c.UserID)
	assert.Equal(t, user.ID, *c.UserID)
	require.NotNil(t, c.IPAddress)

	testutils.HideUserOn(db, user, site)
	_, err = svc.Post(ctx, site, PostInput{ThreadID: thread.ID, Text: "again"}, as(user))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestList_ExcludesHiddenAuthors(t *testing.T) {
	db := testutils.SetupTestDB(t)
	svc := NewCommentService(db, testWidget)
	admin := testutils.CreateTestUser(db, testutils.AsStaff())
	site := testutils.CreateTestSite(db, []*models.User{admin})
	other := testutils.CreateTestSite(db, nil)
	thread := testutils.CreateTestThread(db, site, "")
	troll := testutils.CreateTestUser(db)
	testutils.HideUserOn(db, troll, site)
	visible := testutils.CreateTestComment(db, thread)
	hiddenFlag := testutils.CreateTestComment(db, thread, testutils.HiddenComment())
	testutils.CreateTestComment(db, thread, testutils.ByUser(troll))
	ctx := context.Background()

	l, err := svc.List(ctx, site, thread.ID, anon())
	require.NoError(t, err)
	require.Len(t, l.Comments, 2)
	assert.Equal(t, visible.ID, l.Comments[0].ID)
	assert.Equal(t, hiddenFlag.ID, l.Comments[1].ID)
	assert.False(t, l.SiteAdmin)

	l, err = svc.List(ctx, site, thread.ID, as(admin))
	require.NoError(t, err)
	assert.True(t, l.SiteAdmin)

	_, err = svc.List(ctx, site, thread.ID, as(troll))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.List(ctx, other, thread.ID, anon())
	assert.ErrorIs(t, err, ErrNotFound)
}
