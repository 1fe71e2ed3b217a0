package lofter

import (
	"encoding/json"
	"time"
)

// BlogInfo identifies the blog that authored a post or comment.
type BlogInfo struct {
	BlogID       int64  `json:"blogId"`
	BlogName     string `json:"blogName"`
	BlogNickName string `json:"blogNickName"`
	SmallLogo    string `json:"smallLogo,omitempty"`
}

// PostView is the summary of a post as it appears in listings.
type PostView struct {
	ID          int64    `json:"id"`
	Permalink   string   `json:"permalink"`
	Title       string   `json:"title"`
	Type        int      `json:"type"`
	BlogID      int64    `json:"blogId"`
	PublishTime int64    `json:"publishTime"`
	TagList     []string `json:"tagList,omitempty"`
	BlogPageURL string   `json:"blogPageUrl,omitempty"`
}

// Post type values used by the API.
const (
	PostTypeText  = 1
	PostTypePhoto = 2
)

// TagPostEntry is one listing entry from the tag endpoint.
type TagPostEntry struct {
	PostData struct {
		PostView PostView `json:"postView"`
	} `json:"postData"`
	BlogInfo BlogInfo `json:"blogInfo"`
}

// TagPostsResponse is the envelope returned by the tag endpoint.
type TagPostsResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data *struct {
		Offset int            `json:"offset"`
		List   []TagPostEntry `json:"list"`
	} `json:"data"`
}

// GiftContent is the gated payload returned for unlocked gift posts.
type GiftContent struct {
	Content string            `json:"content"`
	Images  []json.RawMessage `json:"images"`
}

// PostDetail is the full body of a post from the detail endpoint.
// PhotoLinks is a JSON array encoded as a string.
type PostDetail struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Content       string          `json:"content"`
	Type          int             `json:"type"`
	PublishTime   int64           `json:"publishTime"`
	Tag           string          `json:"tag"`
	BlogPageURL   string          `json:"blogPageUrl"`
	PhotoLinks    string          `json:"photoLinks"`
	ShowGift      json.RawMessage `json:"showGift,omitempty"`
	ReturnContent []GiftContent   `json:"returnContent,omitempty"`
	BlogInfo      BlogInfo        `json:"blogInfo"`
}

// PublishedAt converts the API's millisecond timestamp to time.Time.
func (p *PostDetail) PublishedAt() time.Time {
	return time.UnixMilli(p.PublishTime)
}

// PostDetailResponse is the envelope returned by the detail endpoint.
type PostDetailResponse struct {
	Response *struct {
		Posts []struct {
			Post PostDetail `json:"post"`
		} `json:"posts"`
	} `json:"response"`
}

// Post returns the single post in the response, or nil if absent.
func (r *PostDetailResponse) Post() *PostDetail {
	if r.Response == nil || len(r.Response.Posts) == 0 {
		return nil
	}
	return &r.Response.Posts[0].Post
}

// PhotoLink is one entry of a post's decoded photoLinks array.
type PhotoLink struct {
	Orign string `json:"orign"`
	Raw   string `json:"raw"`
	RW    int    `json:"rw,omitempty"`
	RH    int    `json:"rh,omitempty"`
}

// URL returns the best available link for the photo.
func (p PhotoLink) URL() string {
	if p.Raw != "" {
		return p.Raw
	}
	return p.Orign
}

// Comment is a single comment, top-level or reply. Top-level comments
// may carry embedded replies in L2Comments along with the full reply
// count in L2Count.
type Comment struct {
	ID                int64      `json:"id"`
	Content           string     `json:"content"`
	PublishTime       int64      `json:"publishTime"`
	LikeCount         int        `json:"likeCount"`
	IPLocation        string     `json:"ipLocation,omitempty"`
	Quote             string     `json:"quote,omitempty"`
	PublisherBlogInfo BlogInfo   `json:"publisherBlogInfo"`
	L2Count           int        `json:"l2Count,omitempty"`
	L2Comments        []*Comment `json:"l2Comments,omitempty"`
}

// PublishedAt converts the API's millisecond timestamp to time.Time.
func (c *Comment) PublishedAt() time.Time {
	return time.UnixMilli(c.PublishTime)
}

// CommentPageResponse is the envelope for one page of top-level comments.
// Offset -1 in Data means the final page has been reached.
type CommentPageResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data *struct {
		Offset  int        `json:"offset"`
		List    []*Comment `json:"list"`
		HotList []*Comment `json:"hotList"`
	} `json:"data"`
}

// ReplyPageResponse is the envelope for replies to one comment.
type ReplyPageResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data *struct {
		List []*Comment `json:"list"`
	} `json:"data"`
}

// CollectionInfo is the metadata block of a collection.
type CollectionInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PostCount   int    `json:"postCount"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty"`
	BlogID      int64  `json:"blogId,omitempty"`
}

// CollectionItem is one post entry of a collection page.
type CollectionItem struct {
	Post     PostView `json:"post"`
	BlogInfo BlogInfo `json:"blogInfo"`
}

// CollectionResponse is the envelope returned by the collection endpoint.
type CollectionResponse struct {
	Response *struct {
		Collection *CollectionInfo  `json:"collection"`
		Items      []CollectionItem `json:"items"`
	} `json:"response"`
}

// SubscribedCollection is one entry of the caller's subscription list.
type SubscribedCollection struct {
	CollectionID  int64    `json:"collectionId"`
	Name          string   `json:"name"`
	Valid         *bool    `json:"valid,omitempty"`
	CollectionURL string   `json:"collectionUrl,omitempty"`
	BlogInfo      BlogInfo `json:"blogInfo"`
}

// IsValid reports whether the collection is still accessible. Entries
// without the field are treated as valid.
func (s *SubscribedCollection) IsValid() bool {
	return s.Valid == nil || *s.Valid
}

// SubscriptionResponse is the envelope returned by the subscription endpoint.
type SubscriptionResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data *struct {
		Offset                   int                    `json:"offset"`
		SubscribeCollectionCount int                    `json:"subscribeCollectionCount"`
		Collections              []SubscribedCollection `json:"collections"`
	} `json:"data"`
}

// BlogInfoResponse is the envelope returned by the blog info endpoint.
type BlogInfoResponse struct {
	Response *struct {
		Blogs []struct {
			ID       int64  `json:"id"`
			BlogName string `json:"blogname"`
		} `json:"blogs"`
	} `json:"response"`
}
