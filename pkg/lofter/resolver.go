package lofter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	errs "lofterscraper/pkg/errors"
	"lofterscraper/pkg/logger"
)

// GiftStatus describes how a post's gated ("gift") payload is encoded.
type GiftStatus int

const (
	// GiftNone means the post has no gated payload.
	GiftNone GiftStatus = iota
	// GiftLocked means a gated payload exists but was not returned.
	GiftLocked
	// GiftUnlocked means the gated payload was returned and merged.
	GiftUnlocked
	// GiftUnknown means the gating field could not be interpreted.
	GiftUnknown
)

func (s GiftStatus) String() string {
	switch s {
	case GiftNone:
		return "none"
	case GiftLocked:
		return "locked"
	case GiftUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// MediaReference is one media item of a post, in publication order.
// Gated marks items from the gift payload. Unresolved marks entries
// whose URL could not be extracted; they keep their position so the
// ordering of the rest is preserved.
type MediaReference struct {
	Index      int
	URL        string
	Gated      bool
	Unresolved bool
}

// ResolvedContent is a post's body and media after gating resolution.
type ResolvedContent struct {
	PostID      int64
	Title       string
	Type        int
	HTML        string
	Media       []MediaReference
	Gift        GiftStatus
	Author      BlogInfo
	Tags        string
	PublishTime time.Time
	BlogPageURL string
}

// giftHTMLHeader matches the markup the mobile app renders above
// unlocked gift text.
const giftHTMLHeader = `<h3>以下为彩蛋内容</h3>
<p id="GiftContent" style="white-space: pre-line;">`

// Resolver turns raw post detail responses into resolved content:
// ordered media references, merged gift payloads, and an explicit
// gating status. Ambiguous gating is an error, never a guess.
type Resolver struct {
	logger logger.Logger
}

// NewResolver creates a content resolver.
func NewResolver() *Resolver {
	return &Resolver{logger: logger.GetLogger()}
}

// Resolve resolves a post's content. It fails with a resolution error
// when the response carries no post, when the gating field cannot be
// interpreted, or when a photo post's link list cannot be decoded.
func (r *Resolver) Resolve(detail *PostDetailResponse) (*ResolvedContent, error) {
	post := detail.Post()
	if post == nil {
		return nil, errs.New(errs.ErrorTypeResolution, 0, "response contains no post")
	}

	gift := giftStatusOf(post)
	if gift == GiftUnknown {
		return nil, errs.New(errs.ErrorTypeResolution, 0,
			"post %d has unrecognized gift encoding %q", post.ID, string(post.ShowGift))
	}

	media, err := r.resolveMedia(post, gift)
	if err != nil {
		return nil, err
	}

	return &ResolvedContent{
		PostID:      post.ID,
		Title:       post.Title,
		Type:        post.Type,
		HTML:        r.resolveHTML(post, gift),
		Media:       media,
		Gift:        gift,
		Author:      post.BlogInfo,
		Tags:        post.Tag,
		PublishTime: post.PublishedAt(),
		BlogPageURL: post.BlogPageURL,
	}, nil
}

// resolveHTML merges unlocked gift text into the post body.
func (r *Resolver) resolveHTML(post *PostDetail, gift GiftStatus) string {
	content := strings.TrimSpace(post.Content)

	if gift == GiftUnlocked && len(post.ReturnContent) > 0 {
		giftText := post.ReturnContent[0].Content
		if giftText != "" {
			return content + "\n" + giftHTMLHeader + giftText + "</p>"
		}
	}

	return content
}

// resolveMedia extracts the post's media references in order: the plain
// photo list first, then any unlocked gift images.
func (r *Resolver) resolveMedia(post *PostDetail, gift GiftStatus) ([]MediaReference, error) {
	var media []MediaReference

	if post.PhotoLinks != "" && post.PhotoLinks != "[]" {
		var links []PhotoLink
		if err := json.Unmarshal([]byte(post.PhotoLinks), &links); err != nil {
			return nil, errs.New(errs.ErrorTypeResolution, 0,
				"post %d has undecodable photo links: %v", post.ID, err)
		}
		for _, link := range links {
			ref := MediaReference{Index: len(media), URL: link.URL()}
			if ref.URL == "" {
				ref.Unresolved = true
			}
			media = append(media, ref)
		}
	}

	if gift == GiftUnlocked && len(post.ReturnContent) > 0 {
		for _, raw := range post.ReturnContent[0].Images {
			ref := MediaReference{Index: len(media), Gated: true}

			var link PhotoLink
			if err := json.Unmarshal(raw, &link); err != nil || link.URL() == "" {
				ref.Unresolved = true
				r.logger.WarnWithFields("gift image reference left unresolved", map[string]interface{}{
					"post_id": post.ID,
					"index":   ref.Index,
				})
			} else {
				ref.URL = link.URL()
			}

			media = append(media, ref)
		}
	}

	return media, nil
}

// giftStatusOf interprets the showGift field. The API encodes it as an
// int or bool depending on version; anything else is Unknown.
func giftStatusOf(post *PostDetail) GiftStatus {
	raw := bytes.TrimSpace(post.ShowGift)
	if len(raw) == 0 || string(raw) == "null" {
		return GiftNone
	}

	var gated bool
	switch string(raw) {
	case "0", "false":
		gated = false
	case "1", "true":
		gated = true
	default:
		// Some responses double-encode as a quoted number.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return GiftUnknown
		}
		switch s {
		case "0":
			gated = false
		case "1":
			gated = true
		default:
			return GiftUnknown
		}
	}

	if !gated {
		return GiftNone
	}
	if len(post.ReturnContent) > 0 {
		return GiftUnlocked
	}
	return GiftLocked
}

// FormatThreads renders a comment tree as indented text, top-level
// comments with their replies nested one level in.
func FormatThreads(threads []*CommentThread) string {
	var b strings.Builder
	for _, t := range threads {
		fmt.Fprintf(&b, "[l1 %d]\n%s\n", t.Comment.ID, t.Comment.Content)
		for _, reply := range t.Replies {
			fmt.Fprintf(&b, "   [l2 %d]\n    %s\n", reply.ID, reply.Content)
		}
		b.WriteString("\n")
	}
	return b.String()
}
