package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer() *HTMLRenderer {
	return NewHTMLRenderer(config.WidgetConfig{AvatarMin: 1, AvatarMax: 28, DefaultAvatar: 6, DefaultComments: 2})
}

func comments(n int) []models.Comment {
	out := make([]models.Comment, n)
	for i := range out {
		out[i] = models.Comment{
			ID:         uint(i + 1),
			PosterName: "Visitor",
			Text:       "comment text",
			CreatedAt:  time.Now().Add(-time.Hour),
			AvatarNum:  3,
		}
	}
	return out
}

func TestText_SanitizesAndHardensLinks(t *testing.T) {
	out := string(Text("hello <script>alert(1)</script> [site](https://example.com)"))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "nofollow")
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "Bob & Alice", Plain(" <b>Bob</b> & Alice "))
}

func TestComments_HidesHiddenForVisitors(t *testing.T) {
	r := testRenderer()
	cs := comments(2)
	cs[1].Hidden = true

	out, err := r.Comments(CommentsView{Comments: cs, AllComments: true})
	require.NoError(t, err)
	assert.Contains(t, out, `id="comment-1"`)
	assert.NotContains(t, out, `id="comment-2"`)
	assert.NotContains(t, out, "cb-hide")

	out, err = r.Comments(CommentsView{Comments: cs, AllComments: true, SiteAdmin: true})
	require.NoError(t, err)
	assert.Contains(t, out, `id="comment-2"`)
	assert.Contains(t, out, `data-action="/comment/2/unhide"`)
	assert.Contains(t, out, `data-action="/comment/1/hide"`)
}

func TestComments_TruncatesWithoutAllComments(t *testing.T) {
	r := testRenderer()

	out, err := r.Comments(CommentsView{Comments: comments(3)})
	require.NoError(t, err)
	assert.Contains(t, out, `id="comment-2"`)
	assert.NotContains(t, out, `id="comment-3"`)
	assert.Contains(t, out, "Show all 3 comments")

	out, err = r.Comments(CommentsView{Comments: comments(3), AllComments: true})
	require.NoError(t, err)
	assert.Contains(t, out, `id="comment-3"`)
	assert.NotContains(t, out, "cb-more")
}

func TestComments_MarksSessionState(t *testing.T) {
	r := testRenderer()

	out, err := r.Comments(CommentsView{
		Comments:       comments(2),
		PostedComments: []uint{2},
		LastPostedID:   2,
		LikedComments:  []uint{1},
		CustomerID:     "cust-1",
		AllComments:    true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, `class="cb-comment cb-own cb-last"`)
	assert.Contains(t, out, `class="cb-like cb-active" data-action="/comment/1/like"`)
	assert.Contains(t, out, `data-customer-id="cust-1"`)
	assert.Contains(t, out, "/static/avatars/03.png")
}

func TestHeader(t *testing.T) {
	out, err := testRenderer().Header(&models.Thread{ID: 4, URL: "/post", PageTitle: "A <page>", Likes: 3, CommentCount: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "A &lt;page&gt;")
	assert.Contains(t, out, `data-action="/thread/4/like">3<`)
	assert.Contains(t, out, "2 comments")
}

func TestFooter(t *testing.T) {
	out, err := testRenderer().Footer(FooterView{AvatarNum: 5})
	require.NoError(t, err)
	assert.Equal(t, 28, strings.Count(out, "data-avatar="))
	assert.Contains(t, out, `<li class="cb-selected"><a href="#" data-avatar="5">`)
	assert.Contains(t, out, "cb-login")

	out, err = testRenderer().Footer(FooterView{User: &models.User{FullName: "Ann"}, AvatarNum: 5})
	require.NoError(t, err)
	assert.Contains(t, out, "cb-logout")
}

func TestPostResponse_EmbedsEnvelope(t *testing.T) {
	e := Envelope{StatusCode: 400, RespData: `{"placement":"comments_container"}`, RequestPath: "/comment", IframeID: "frame-1"}
	out, err := testRenderer().PostResponse(e)
	require.NoError(t, err)

	start := strings.Index(out, "postMessage(")
	end := strings.LastIndex(out, `, "*")`)
	require.True(t, start >= 0 && end > start)

	var got Envelope
	require.NoError(t, json.Unmarshal([]byte(out[start+len("postMessage("):end]), &got))
	assert.Equal(t, e, got)
}
