package lofter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lofterscraper/pkg/auth"
	errs "lofterscraper/pkg/errors"
	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/ratelimit"
	"lofterscraper/pkg/retry"
)

// DefaultUserAgent is the user agent of the Lofter Android app the API expects.
const DefaultUserAgent = "LOFTER-Android 8.0.12 (LM-V409N; Android 15; null) WIFI"

// DefaultProduct is the lofproduct header matching DefaultUserAgent.
const DefaultProduct = "lofter-android-8.0.12"

// Options configures a Client.
type Options struct {
	// BaseURL overrides the API base URL, mainly for tests
	BaseURL string
	// Timeout applies to API requests
	Timeout time.Duration
	// DownloadTimeout applies to media downloads
	DownloadTimeout time.Duration
	// UserAgent overrides the default mobile user agent
	UserAgent string
	// Product overrides the default lofproduct header
	Product string
	// Carrier supplies credentials; nil means unauthenticated requests
	Carrier *auth.Carrier
	// Limiter gates every request attempt; nil means no limiting
	Limiter *ratelimit.Limiter
	// MaxRetries is the number of attempts per request
	MaxRetries int
	// Logger for request logging
	Logger logger.Logger
}

// Client talks to the Lofter mobile API. Every request attempt, retries
// included, first acquires a slot from the rate limiter for its endpoint
// class, so backoff never bypasses the pacing rules.
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	baseURL        string
	headers        map[string]string
	carrier        *auth.Carrier
	limiter        *ratelimit.Limiter
	retryCfg       *retry.Config
	logger         logger.Logger
}

// NewClient creates a new Lofter API client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Product == "" {
		opts.Product = DefaultProduct
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = opts.MaxRetries
	retryCfg.Logger = log

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		downloadClient: &http.Client{
			Timeout: opts.DownloadTimeout,
		},
		baseURL: opts.BaseURL,
		// Accept-Encoding is left to the transport so gzip responses
		// are decompressed transparently.
		headers: map[string]string{
			"User-Agent":   opts.UserAgent,
			"lofproduct":   opts.Product,
			"Content-Type": "application/x-www-form-urlencoded",
		},
		carrier:  opts.Carrier,
		limiter:  opts.Limiter,
		retryCfg: retryCfg,
		logger:   log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Carrier returns the credential carrier the client was built with.
func (c *Client) Carrier() *auth.Carrier {
	return c.carrier
}

// requestSpec describes one API request so it can be rebuilt per attempt.
type requestSpec struct {
	method   string
	endpoint string
	query    url.Values
	form     url.Values
	class    ratelimit.Class
}

func (c *Client) buildRequest(ctx context.Context, spec requestSpec) (*http.Request, error) {
	reqURL := c.baseURL + spec.endpoint
	if len(spec.query) > 0 {
		reqURL += "?" + spec.query.Encode()
	}

	var body io.Reader
	if spec.form != nil {
		body = strings.NewReader(spec.form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, reqURL, body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.carrier != nil {
		c.carrier.Apply(req)
	}

	return req, nil
}

// do runs one request with rate limiting and retries, returning the body.
func (c *Client) do(ctx context.Context, spec requestSpec) ([]byte, error) {
	return retry.DoWithResult(ctx, func() ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, spec.class); err != nil {
				return nil, err
			}
		}

		req, err := c.buildRequest(ctx, spec)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)
		if err != nil {
			c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
				"method":   req.Method,
				"url":      req.URL.String(),
				"error":    err.Error(),
				"duration": duration,
			})
			return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
		}
		defer resp.Body.Close()

		c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"status":   resp.StatusCode,
			"duration": duration,
		})

		if err := c.checkResponseStatus(resp); err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
		}

		return body, nil
	}, c.retryCfg)
}

// doJSON runs a request and decodes the JSON body into target.
func (c *Client) doJSON(ctx context.Context, spec requestSpec, target interface{}) error {
	body, err := c.do(ctx, spec)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     spec.endpoint,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, 0, "failed to parse JSON: %v", err)
	}

	return nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	default:
		if resp.StatusCode >= 500 {
			return errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server error")
		}
		if resp.StatusCode >= 400 {
			return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
		}
		return nil
	}
}

// apiError maps an application-level error code from a JSON envelope to a
// typed error. Lofter reuses HTTP-like codes inside successful responses.
func apiError(code int, msg string) error {
	if msg == "" {
		msg = "API error"
	}
	if code >= 500 {
		return errs.New(errs.ErrorTypeServerError, code, "%s", msg)
	}
	return errs.New(errs.ErrorTypeUnknown, code, "%s", msg)
}

// FetchTagPage fetches one page of posts for a tag.
func (c *Client) FetchTagPage(ctx context.Context, tag, listType, timeLimit string, offset int) (*TagPostsResponse, error) {
	c.logger.DebugWithFields("fetching tag page", map[string]interface{}{
		"tag":    tag,
		"offset": offset,
	})

	var response TagPostsResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodPost,
		endpoint: TagPostsEndpoint,
		form:     TagPostsForm(tag, listType, timeLimit, offset),
		class:    ratelimit.ClassTagList,
	}, &response)
	if err != nil {
		return nil, err
	}

	return &response, nil
}

// FetchPostDetail fetches the full body of a post.
func (c *Client) FetchPostDetail(ctx context.Context, blogID int64, blogDomain, postID string) (*PostDetailResponse, error) {
	c.logger.DebugWithFields("fetching post detail", map[string]interface{}{
		"post_id": postID,
		"blog_id": blogID,
	})

	var response PostDetailResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodPost,
		endpoint: PostDetailEndpoint,
		form:     PostDetailForm(blogID, blogDomain, postID),
		class:    ratelimit.ClassPostDetail,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Post() == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, 0, "post %s not found", postID)
	}

	return &response, nil
}

// FetchPostDetailByID fetches a post's body given only numeric IDs,
// resolving the blog domain first.
func (c *Client) FetchPostDetailByID(ctx context.Context, postID string, blogID int64) (*PostDetailResponse, error) {
	blogDomain := fmt.Sprintf("%d.lofter.com", blogID)

	info, err := c.ResolveBlogByID(ctx, blogID)
	if err == nil && info != nil && info.BlogName != "" {
		blogDomain = BlogDomain(info.BlogName)
	}

	return c.FetchPostDetail(ctx, blogID, blogDomain, postID)
}

// ResolvedBlog is the outcome of a blog lookup.
type ResolvedBlog struct {
	ID       int64
	BlogName string
}

// ResolveBlogByID looks up a blog's name from its numeric ID.
func (c *Client) ResolveBlogByID(ctx context.Context, blogID int64) (*ResolvedBlog, error) {
	var response BlogInfoResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: BlogInfoEndpoint,
		query:    BlogInfoByIDParams(blogID),
		class:    ratelimit.ClassGeneric,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Response == nil || len(response.Response.Blogs) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, 0, "blog %d not found", blogID)
	}

	blog := response.Response.Blogs[0]
	return &ResolvedBlog{ID: blog.ID, BlogName: blog.BlogName}, nil
}

// ResolveBlogByName looks up a blog's numeric ID from its name.
func (c *Client) ResolveBlogByName(ctx context.Context, blogName string) (*ResolvedBlog, error) {
	var response BlogInfoResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: BlogInfoEndpoint,
		query:    BlogInfoByDomainParams(blogName),
		class:    ratelimit.ClassGeneric,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Response == nil || len(response.Response.Blogs) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, 0, "blog %q not found", blogName)
	}

	blog := response.Response.Blogs[0]
	return &ResolvedBlog{ID: blog.ID, BlogName: blog.BlogName}, nil
}

// FetchCommentPage fetches one page of top-level comments for a post.
func (c *Client) FetchCommentPage(ctx context.Context, postID, blogID int64, offset int) (*CommentPageResponse, error) {
	var response CommentPageResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: L1CommentsEndpoint,
		query:    L1CommentParams(postID, blogID, offset),
		class:    ratelimit.ClassCommentL1,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Code != 0 {
		return nil, apiError(response.Code, response.Msg)
	}

	return &response, nil
}

// FetchReplies fetches the replies to one top-level comment.
func (c *Client) FetchReplies(ctx context.Context, postID, blogID, commentID int64) (*ReplyPageResponse, error) {
	var response ReplyPageResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: L2CommentsEndpoint,
		query:    L2CommentParams(postID, blogID, commentID),
		class:    ratelimit.ClassCommentL2,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Code != 0 {
		return nil, apiError(response.Code, response.Msg)
	}

	return &response, nil
}

// FetchCollectionPage fetches one page of a collection's items. The same
// endpoint with limit 1 serves as the metadata lookup.
func (c *Client) FetchCollectionPage(ctx context.Context, collectionID int64, offset, limit int) (*CollectionResponse, error) {
	var response CollectionResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodPost,
		endpoint: CollectionEndpoint,
		query:    url.Values{"product": []string{ProductCollection}},
		form:     CollectionForm(collectionID, offset, limit),
		class:    ratelimit.ClassCollectionList,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Response == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, 0, "collection %d not found", collectionID)
	}

	return &response, nil
}

// FetchSubscriptionPage fetches one page of the caller's subscribed
// collections. Requires an authenticated carrier.
func (c *Client) FetchSubscriptionPage(ctx context.Context, offset, limit int) (*SubscriptionResponse, error) {
	var response SubscriptionResponse
	err := c.doJSON(ctx, requestSpec{
		method:   http.MethodGet,
		endpoint: SubscriptionEndpoint,
		query:    SubscriptionParams(offset, limit),
		class:    ratelimit.ClassSubscription,
	}, &response)
	if err != nil {
		return nil, err
	}

	if response.Code != 0 {
		return nil, apiError(response.Code, response.Msg)
	}

	return &response, nil
}

// DownloadPhoto downloads a photo from the given URL.
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, error) {
	return retry.DoWithResult(ctx, func() ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, ratelimit.ClassGeneric); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
		}
		for key, value := range c.headers {
			req.Header.Set(key, value)
		}

		resp, err := c.downloadClient.Do(req)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to download photo: %v", err)
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to read photo data: %v", err)
		}

		c.logger.DebugWithFields("downloaded photo", map[string]interface{}{
			"url":  photoURL,
			"size": len(data),
		})

		return data, nil
	}, c.retryCfg)
}
