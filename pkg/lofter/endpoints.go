package lofter

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// BaseURL is the base URL for the Lofter mobile API
	BaseURL = "https://api.lofter.com"

	// TagPostsEndpoint serves paginated post listings for a tag
	TagPostsEndpoint = "/newapi/tagPosts.json"

	// PostDetailEndpoint serves the full body of a single post
	PostDetailEndpoint = "/oldapi/post/detail.api"

	// L1CommentsEndpoint serves paginated top-level comments
	L1CommentsEndpoint = "/comment/l1/page.json"

	// L2CommentsEndpoint serves replies to a top-level comment
	L2CommentsEndpoint = "/comment/l2/page/abtest.json"

	// CollectionEndpoint serves collection metadata and paginated items
	CollectionEndpoint = "/v1.1/postCollection.api"

	// SubscriptionEndpoint serves the caller's subscribed collections
	SubscriptionEndpoint = "/newapi/subscribeCollection/list.json"

	// BlogInfoEndpoint resolves blog IDs and domains
	BlogInfoEndpoint = "/v1.1/bloginfo.api"
)

// Product identifiers the mobile app sends per endpoint family. The API
// expects different versions on different endpoints.
const (
	ProductPostDetail = "lofter-android-7.9.7.2"
	ProductComments   = "lofter-android-8.2.18"
	ProductCollection = "lofter-android-7.6.12"
)

const (
	// DefaultTagPageSize is the page size for tag listings
	DefaultTagPageSize = 10

	// DefaultCollectionPageSize is the page size for collection listings
	DefaultCollectionPageSize = 15

	// DefaultSubscriptionPageSize is the page size for subscription listings
	DefaultSubscriptionPageSize = 50
)

// Tag list ordering accepted by the tag endpoint.
const (
	TagListTotal = "total"
	TagListNew   = "new"
	TagListDate  = "date"
	TagListWeek  = "week"
	TagListMonth = "month"
)

// TagPostsForm builds the POST form for a page of tag results.
// timeLimit is an optional yyyyMM filter; listType selects ordering.
func TagPostsForm(tag, listType, timeLimit string, offset int) url.Values {
	if listType == "" {
		listType = TagListTotal
	}
	form := url.Values{}
	form.Set("postTypes", "0")
	form.Set("offset", strconv.Itoa(offset))
	form.Set("postYm", timeLimit)
	form.Set("tag", tag)
	form.Set("type", listType)
	form.Set("limit", strconv.Itoa(DefaultTagPageSize))
	return form
}

// PostDetailForm builds the POST form for fetching a single post's body.
func PostDetailForm(blogID int64, blogDomain, postID string) url.Values {
	form := url.Values{}
	form.Set("targetblogid", strconv.FormatInt(blogID, 10))
	form.Set("blogdomain", blogDomain)
	form.Set("postid", postID)
	form.Set("product", ProductPostDetail)
	return form
}

// CollectionForm builds the POST form for a page of collection items.
func CollectionForm(collectionID int64, offset, limit int) url.Values {
	if limit <= 0 {
		limit = DefaultCollectionPageSize
	}
	form := url.Values{}
	form.Set("method", "getCollectionDetail")
	form.Set("offset", strconv.Itoa(offset))
	form.Set("limit", strconv.Itoa(limit))
	form.Set("collectionid", strconv.FormatInt(collectionID, 10))
	form.Set("order", "1")
	return form
}

// L1CommentParams builds the query for a page of top-level comments.
func L1CommentParams(postID, blogID int64, offset int) url.Values {
	params := url.Values{}
	params.Set("postId", strconv.FormatInt(postID, 10))
	params.Set("blogId", strconv.FormatInt(blogID, 10))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("product", ProductComments)
	params.Set("needGift", "0")
	params.Set("openFansVipPlan", "0")
	params.Set("dunType", "1")
	return params
}

// L2CommentParams builds the query for replies to one top-level comment.
func L2CommentParams(postID, blogID, commentID int64) url.Values {
	params := url.Values{}
	params.Set("postId", strconv.FormatInt(postID, 10))
	params.Set("blogId", strconv.FormatInt(blogID, 10))
	params.Set("id", strconv.FormatInt(commentID, 10))
	params.Set("offset", "0")
	params.Set("fromSrc", "")
	params.Set("fromId", "")
	return params
}

// SubscriptionParams builds the query for a page of subscribed collections.
func SubscriptionParams(offset, limit int) url.Values {
	if limit <= 0 {
		limit = DefaultSubscriptionPageSize
	}
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(limit))
	return params
}

// BlogInfoByIDParams builds the query for resolving a blog by numeric ID.
func BlogInfoByIDParams(blogID int64) url.Values {
	params := url.Values{}
	params.Set("product", ProductPostDetail)
	params.Set("blogids", strconv.FormatInt(blogID, 10))
	return params
}

// BlogInfoByDomainParams builds the query for resolving a blog by domain.
func BlogInfoByDomainParams(blogName string) url.Values {
	params := url.Values{}
	params.Set("product", ProductPostDetail)
	params.Set("blogdomains", BlogDomain(blogName))
	return params
}

// BlogDomain returns the full lofter.com domain for a blog name.
func BlogDomain(blogName string) string {
	if strings.HasSuffix(blogName, ".lofter.com") {
		return blogName
	}
	return blogName + ".lofter.com"
}

// PostRef identifies a post well enough to fetch its detail. BlogID or
// BlogName may be zero-valued depending on where the reference came from.
type PostRef struct {
	PostID   string
	BlogID   int64
	BlogName string
}

var hexPostID = regexp.MustCompile(`^[0-9a-f]+_[0-9a-f]+$`)

// ParsePostURL extracts a post reference from a Lofter post URL.
// Supported forms:
//
//	https://<blog>.lofter.com/post/<id>
//	https://www.lofter.com/front/blog/view.do?blogId=<n>&postId=<n>
func ParsePostURL(rawURL string) (*PostRef, error) {
	rawURL = strings.Trim(rawURL, `"'`)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if !strings.HasSuffix(u.Host, ".lofter.com") {
		return nil, fmt.Errorf("not a lofter.com URL: %s", rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	// Standard blog post URL: <blog>.lofter.com/post/<id>
	if len(parts) >= 2 && parts[0] == "post" {
		return &PostRef{
			PostID:   parts[1],
			BlogName: blogNameFromHost(u.Host),
		}, nil
	}

	// Query-parameter form: www.lofter.com/front/blog/view.do?blogId=&postId=
	if postID := u.Query().Get("postId"); postID != "" {
		ref := &PostRef{PostID: postID}
		if blogID := u.Query().Get("blogId"); blogID != "" {
			id, err := strconv.ParseInt(blogID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid blogId %q: %w", blogID, err)
			}
			ref.BlogID = id
		}
		return ref, nil
	}

	// Post ID embedded elsewhere in the path
	for _, part := range parts {
		if hexPostID.MatchString(part) {
			return &PostRef{
				PostID:   part,
				BlogName: blogNameFromHost(u.Host),
			}, nil
		}
	}

	return nil, fmt.Errorf("no post reference found in URL: %s", rawURL)
}

func blogNameFromHost(host string) string {
	name := strings.TrimSuffix(host, ".lofter.com")
	return strings.TrimPrefix(name, "www.")
}
