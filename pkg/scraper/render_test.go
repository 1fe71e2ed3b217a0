package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lofterscraper/pkg/lofter"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"line breaks", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"paragraphs", "<p>first</p><p>second</p>", "first\n\nsecond"},
		{"tags stripped", `<a href="x">link</a> and <b>bold</b>`, "link and bold"},
		{"entities decoded", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"blank runs collapsed", "a</p></p></p>b", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, htmlToText(tt.input))
		})
	}
}

func TestRenderPostText(t *testing.T) {
	content := &lofter.ResolvedContent{
		PostID:      1,
		Title:       "夜记",
		Type:        lofter.PostTypeText,
		HTML:        "<p>first paragraph</p><p>second</p>",
		Author:      lofter.BlogInfo{BlogName: "someblog", BlogNickName: "写手"},
		Tags:        "原创",
		PublishTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		BlogPageURL: "https://someblog.lofter.com/post/abc",
	}

	threads := []*lofter.CommentThread{
		{Comment: &lofter.Comment{ID: 9, Content: "nice"}},
	}

	text := renderPostText(content, threads)

	assert.Contains(t, text, "标题: 夜记")
	assert.Contains(t, text, "作者: 写手")
	assert.Contains(t, text, "Tags: 原创")
	assert.Contains(t, text, "first paragraph")
	assert.Contains(t, text, "【评论】")
	assert.Contains(t, text, "nice")
	assert.NotContains(t, text, "暂无评论")

	empty := renderPostText(content, nil)
	assert.Contains(t, empty, "(暂无评论)")
}

func TestRenderPostTextPhotoPost(t *testing.T) {
	content := &lofter.ResolvedContent{
		Type: lofter.PostTypePhoto,
		HTML: "caption text",
	}
	text := renderPostText(content, nil)
	assert.Contains(t, text, "[Photo Post]")
	assert.Contains(t, text, "caption text")
	assert.Contains(t, text, "标题: Untitled")
}

func TestRenderSubscriptionSummary(t *testing.T) {
	invalid := false
	collections := []lofter.SubscribedCollection{
		{CollectionID: 1, Name: "长篇连载", BlogInfo: lofter.BlogInfo{BlogNickName: "作者甲"}},
		{CollectionID: 2, Name: "已删合集", Valid: &invalid},
	}

	summary := renderSubscriptionSummary(collections)
	assert.Contains(t, summary, "订阅合集 (2)")
	assert.Contains(t, summary, "长篇连载 (id 1) by 作者甲")
	assert.Contains(t, summary, "[已失效]")
	if strings.Count(summary, "[已失效]") != 1 {
		t.Errorf("only the invalid entry should be marked: %q", summary)
	}
}
