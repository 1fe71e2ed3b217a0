package scraper

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"lofterscraper/pkg/lofter"
)

var (
	brTags     = regexp.MustCompile(`(?i)<br\s*/?>`)
	pCloseTags = regexp.MustCompile(`(?i)</p>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// htmlToText flattens post HTML into readable plain text. Line breaks
// and paragraph ends become newlines before the remaining tags are
// stripped.
func htmlToText(raw string) string {
	text := brTags.ReplaceAllString(raw, "\n")
	text = pCloseTags.ReplaceAllString(text, "\n\n")
	text = anyTag.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// renderPostText builds the .txt rendition of a post: a metadata
// header, the flattened body, and the comment section.
func renderPostText(content *lofter.ResolvedContent, threads []*lofter.CommentThread) string {
	title := content.Title
	if title == "" {
		title = "Untitled"
	}

	body := ""
	switch content.Type {
	case lofter.PostTypeText:
		body = htmlToText(content.HTML)
	case lofter.PostTypePhoto:
		body = "[Photo Post]"
		if text := htmlToText(content.HTML); text != "" {
			body += "\n" + text
		}
	default:
		body = "[Unknown Post Type]"
	}

	parts := []string{
		fmt.Sprintf("标题: %s", title),
		fmt.Sprintf("发布时间: %s", content.PublishTime.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("作者: %s", content.Author.BlogNickName),
		fmt.Sprintf("作者LOFTERID: %s", content.Author.BlogName),
		fmt.Sprintf("Tags: %s", content.Tags),
		fmt.Sprintf("Link: %s", content.BlogPageURL),
		"",
		"[正文]",
		body,
		"\n\n\n",
		"【评论】",
	}

	if len(threads) > 0 {
		parts = append(parts, lofter.FormatThreads(threads))
	} else {
		parts = append(parts, "(暂无评论)")
	}

	return strings.Join(parts, "\n")
}

// renderSubscriptionSummary builds the text listing of subscribed
// collections, invalid entries marked.
func renderSubscriptionSummary(collections []lofter.SubscribedCollection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "订阅合集 (%d)\n\n", len(collections))
	for _, c := range collections {
		fmt.Fprintf(&b, "%s (id %d) by %s", c.Name, c.CollectionID, c.BlogInfo.BlogNickName)
		if !c.IsValid() {
			b.WriteString(" [已失效]")
		}
		if c.CollectionURL != "" {
			fmt.Fprintf(&b, "\n    %s", c.CollectionURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
