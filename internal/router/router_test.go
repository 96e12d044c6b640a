package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/models"
	"commentbox/internal/render"
	"commentbox/internal/sessionstore"
	"commentbox/internal/sitecache"
	"commentbox/internal/testutils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	return setupRouterWithRedis(t, "")
}

// setupRouterWithRedis keeps sessions in Redis when redisURL is set.
func setupRouterWithRedis(t *testing.T, redisURL string) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)
	conn := testutils.SetupTestDB(t)
	conf := config.Default()
	store, err := sessionstore.New(conf.Session, redisURL)
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:       conn,
		Config:   conf,
		Sites:    sitecache.NewResolver(conn, sitecache.NewLRU(16), time.Minute),
		Renderer: render.NewHTMLRenderer(conf.Widget),
		Sessions: store,
	})
	return r, conn
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(r *gin.Engine) *client {
	return &client{r: r, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, form url.Values, xhr bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouter(t)
	w := newClient(r).do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHostCheck(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	c := newClient(r)

	w := c.do(http.MethodPost, "/comment/1/like", url.Values{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "comments_container", body["placement"])
	assert.Equal(t, "no domain provided", body["content"])

	w = c.do(http.MethodPost, "/comment/1/like", url.Values{"domain": {"other.example.com"}}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown domain", decode(t, w)["content"])

	w = c.do(http.MethodPost, "/comment/999/like", url.Values{"domain": {"blog.example.com"}}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIframePostGetsEnvelope(t *testing.T) {
	r, _ := setupRouter(t)

	w := newClient(r).do(http.MethodPost, "/comment/1/like", url.Values{"iframeId": {"frame-7"}}, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `"iframeId":"frame-7"`)
	assert.Contains(t, w.Body.String(), `"status_code":400`)
	assert.Contains(t, w.Body.String(), `"request_path":"/comment/1/like"`)
}

func TestThreadReactionFlow(t *testing.T) {
	r, conn := setupRouter(t)
	site := testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	thread := testutils.CreateTestThread(conn, site, "/post")
	c := newClient(r)
	form := url.Values{"domain": {"blog.example.com"}}
	like := fmt.Sprintf("/thread/%d/like", thread.ID)

	w := c.do(http.MethodPost, like, form, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "comments_header", body["placement"])
	assert.Contains(t, body["content"], fmt.Sprintf(`data-action="/thread/%d/like">1<`, thread.ID))

	// same session likes again: no change
	w = c.do(http.MethodPost, like, form, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, fmt.Sprintf("/thread/%d/dislike", thread.ID), form, true)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Thread
	require.NoError(t, conn.First(&got, thread.ID).Error)
	assert.Equal(t, 0, got.LikedByCount)
	assert.Equal(t, 1, got.DislikedByCount)
}

func TestThreadOfOtherSiteIsNotFound(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	other := testutils.CreateTestSite(conn, nil, testutils.WithDomain("news.example.com"))
	thread := testutils.CreateTestThread(conn, other, "/post")

	w := newClient(r).do(http.MethodPost, fmt.Sprintf("/thread/%d/like", thread.ID), url.Values{"domain": {"blog.example.com"}}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "comments_header", decode(t, w)["placement"])
}

func TestCommentOfOtherSiteIsNotFound(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	other := testutils.CreateTestSite(conn, nil, testutils.WithDomain("news.example.com"))
	comment := testutils.CreateTestComment(conn, testutils.CreateTestThread(conn, other, "/post"))

	w := newClient(r).do(http.MethodPost, fmt.Sprintf("/comment/%d/like", comment.ID), url.Values{"domain": {"blog.example.com"}}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "comments_container", decode(t, w)["placement"])

	var got models.Comment
	require.NoError(t, conn.First(&got, comment.ID).Error)
	assert.Equal(t, 0, got.LikedByCount)
}

func TestPostAndListComments(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	c := newClient(r)

	w := c.do(http.MethodPost, "/comment", url.Values{
		"domain":      {"blog.example.com"},
		"thread":      {"/articles/1"},
		"text":        {"first!"},
		"poster_name": {"Visitor"},
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Contains(t, body["content"], "first!")
	assert.Contains(t, body["content"], "cb-own")
	require.NotNil(t, body["comment_id"])

	var thread models.Thread
	require.NoError(t, conn.Where("url = ?", "/articles/1").First(&thread).Error)

	w = c.do(http.MethodGet, fmt.Sprintf("/comments?domain=blog.example.com&thread=%d", thread.ID), nil, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "comments_container", body["html_container_name"])
	assert.Contains(t, body["html"], "first!")

	w = c.do(http.MethodGet, "/comment_count?domain=blog.example.com&thread_url=/articles/1&callback=cb", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "cb("), w.Body.String())
	assert.Contains(t, w.Body.String(), `"comment_count":1`)
}

func TestThreadInfo(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))

	w := newClient(r).do(http.MethodGet, "/thread_info?domain=blog.example.com&thread=/a&page_title=Hello", nil, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["comments_enabled"])
	avatar := body["avatar_num"].(float64)
	assert.GreaterOrEqual(t, avatar, 1.0)
	assert.LessOrEqual(t, avatar, 28.0)

	var thread models.Thread
	require.NoError(t, conn.Where("url = ?", "/a").First(&thread).Error)
	assert.Equal(t, "Hello", thread.PageTitle)

	w = newClient(r).do(http.MethodGet, "/thread_info?domain=unknown.example.com&thread=/a", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisteredAccountReactsWithRows(t *testing.T) {
	r, conn := setupRouter(t)
	site := testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	thread := testutils.CreateTestThread(conn, site, "/post")
	c := newClient(r)

	w := c.do(http.MethodPost, "/register", url.Values{
		"email":     {"reader@example.com"},
		"full_name": {"Reader"},
		"password":  {"secret"},
		"password2": {"secret"},
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodPost, fmt.Sprintf("/thread/%d/like", thread.ID), url.Values{"domain": {"blog.example.com"}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	conn.Model(&models.Reaction{}).Where("target_id = ? AND kind = ?", thread.ID, models.KindLike).Count(&count)
	assert.Equal(t, int64(1), count)

	var got models.Thread
	require.NoError(t, conn.First(&got, thread.ID).Error)
	assert.Equal(t, 0, got.LikedByCount)
}

func TestLoginWithLongHistory(t *testing.T) {
	for _, backend := range []string{"memory", "redis"} {
		t.Run(backend, func(t *testing.T) {
			redisURL := ""
			if backend == "redis" {
				redisURL = "redis://" + miniredis.RunT(t).Addr()
			}
			r, conn := setupRouterWithRedis(t, redisURL)
			site := testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
			u := testutils.CreateTestUser(conn, testutils.WithEmail("busy@example.com"))

			rows := make([]models.Reaction, 0, 2000)
			for i := 1; i <= 2000; i++ {
				rows = append(rows, models.Reaction{TargetType: models.TargetThread, TargetID: uint(i), UserID: u.ID, Kind: models.KindLike})
			}
			require.NoError(t, conn.CreateInBatches(rows, 200).Error)

			c := newClient(r)
			w := c.do(http.MethodPost, "/login", url.Values{
				"email":    {"busy@example.com"},
				"password": {testutils.DefaultPassword},
				"site_id":  {fmt.Sprint(site.ID)},
			}, true)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.NotEmpty(t, c.cookies)

			w = c.do(http.MethodPost, "/set_avatar", url.Values{"avatar_num": {"9"}}, true)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var got models.User
			require.NoError(t, conn.First(&got, u.ID).Error)
			assert.Equal(t, 9, got.AvatarNum)
		})
	}
}

func TestAdminRequiresStaff(t *testing.T) {
	r, _ := setupRouter(t)
	w := newClient(r).do(http.MethodGet, "/admin/threads", nil, false)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminScope(t *testing.T) {
	r, conn := setupRouter(t)
	admin := testutils.CreateTestUser(conn, testutils.AsStaff(), testutils.WithEmail("admin@example.com"))
	own := testutils.CreateTestSite(conn, []*models.User{admin})
	other := testutils.CreateTestSite(conn, nil)
	ownThread := testutils.CreateTestThread(conn, own, "/mine")
	otherThread := testutils.CreateTestThread(conn, other, "/theirs")
	otherComment := testutils.CreateTestComment(conn, otherThread)
	ownComment := testutils.CreateTestComment(conn, ownThread)

	c := newClient(r)
	w := c.do(http.MethodPost, "/admin/login", url.Values{"email": {"admin@example.com"}, "password": {testutils.DefaultPassword}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/admin/threads", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	threads := decode(t, w)["threads"].([]interface{})
	require.Len(t, threads, 1)
	assert.Equal(t, float64(ownThread.ID), threads[0].(map[string]interface{})["id"])

	w = c.do(http.MethodPost, fmt.Sprintf("/admin/comments/%d/hide", otherComment.ID), url.Values{}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodPost, fmt.Sprintf("/admin/comments/%d/hide", ownComment.ID), url.Values{}, true)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Comment
	require.NoError(t, conn.First(&got, ownComment.ID).Error)
	assert.True(t, got.Hidden)

	w = c.do(http.MethodPost, "/admin/sites", url.Values{"domain": {"new.example.com"}}, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateSiteRefreshesCache(t *testing.T) {
	r, conn := setupRouter(t)
	testutils.CreateTestUser(conn, testutils.AsSuperuser(), testutils.WithEmail("root@example.com"))
	site := testutils.CreateTestSite(conn, nil, testutils.WithDomain("blog.example.com"))
	info := "/thread_info?domain=blog.example.com&thread=/a"

	c := newClient(r)
	w := c.do(http.MethodGet, info, nil, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["anonymous_allowed"])

	w = c.do(http.MethodPost, "/admin/login", url.Values{"email": {"root@example.com"}, "password": {testutils.DefaultPassword}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do(http.MethodPost, fmt.Sprintf("/admin/sites/%d", site.ID), url.Values{"anonymous_allowed": {"true"}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodGet, info, nil, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["anonymous_allowed"])
}

func TestAdminScopeFailureHasErrorBody(t *testing.T) {
	r, conn := setupRouter(t)
	admin := testutils.CreateTestUser(conn, testutils.AsStaff(), testutils.WithEmail("admin@example.com"))
	testutils.CreateTestSite(conn, []*models.User{admin})

	c := newClient(r)
	w := c.do(http.MethodPost, "/admin/login", url.Values{"email": {"admin@example.com"}, "password": {testutils.DefaultPassword}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, conn.Migrator().DropTable("site_admins"))

	w = c.do(http.MethodGet, "/admin/threads", nil, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decode(t, w)["error"])
}
