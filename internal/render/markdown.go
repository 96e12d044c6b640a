package render

import (
	"bytes"
	htmlstd "html"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoFollowOnLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// Text renders comment markdown into sanitized HTML. Raw HTML in the source
// is escaped by goldmark and anything left is filtered by the UGC policy.
func Text(source string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return harden(string(policy.SanitizeBytes(buf.Bytes())))
}

// Plain strips every tag, for titles and poster names. The result is plain
// text and gets escaped again by the templates.
func Plain(s string) string {
	return strings.TrimSpace(htmlstd.UnescapeString(strict.Sanitize(s)))
}

// harden rewrites links and images in rendered comment HTML so they behave
// inside a third-party page.
func harden(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
		s.AddClass("comment-image")
	})

	// widget lives in an iframe, links must leave it
	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("target", "_blank")
		s.SetAttr("rel", "nofollow noopener noreferrer")
	})

	out, _ := doc.Find("body").Html()
	if out == "" {
		out, _ = doc.Html()
	}
	return template.HTML(out)
}
