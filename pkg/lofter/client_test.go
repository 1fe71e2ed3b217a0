package lofter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lofterscraper/pkg/auth"
	errs "lofterscraper/pkg/errors"
	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/retry"
)

// newTestClient builds a client against a test server with retry
// delays removed so tests run instantly.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client := NewClient(Options{
		BaseURL: serverURL,
		Logger:  logger.NewTestLogger(),
	})
	client.retryCfg.Backoff = &retry.ConstantBackoff{}
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"response":{"blogs":[{"id":42,"blogname":"someblog"}]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	blog, err := client.ResolveBlogByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "someblog", blog.BlogName)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchSubscriptionPage(context.Background(), 0, 50)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "permanent errors must not be retried")
}

func TestClientSendsCredentials(t *testing.T) {
	var gotBareHeader string
	gotCookies := map[string]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBareHeader = r.Header.Get("Authorization")
		for _, c := range r.Cookies() {
			gotCookies[c.Name] = c.Value
		}
		fmt.Fprint(w, `{"code":0,"data":{"offset":0,"subscribeCollectionCount":0,"collections":[]}}`)
	}))
	defer server.Close()

	carrier, err := auth.NewCarrier(map[auth.Kind]string{
		auth.KindAuthorization: "tok-123",
		auth.KindLofterSession: "sess-456",
	}, auth.KindAuthorization)
	require.NoError(t, err)

	client := NewClient(Options{
		BaseURL: server.URL,
		Carrier: carrier,
		Logger:  logger.NewTestLogger(),
	})

	_, err = client.FetchSubscriptionPage(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotCookies["Authorization"])
	assert.Equal(t, "sess-456", gotCookies["LOFTER_SESS"])
	assert.Empty(t, gotBareHeader, "credentials ride in the Cookie header only")
}

func TestFetchPostDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "12345", r.PostForm.Get("targetblogid"))
		assert.Equal(t, "someblog.lofter.com", r.PostForm.Get("blogdomain"))
		assert.Equal(t, "abc_def", r.PostForm.Get("postid"))

		fmt.Fprint(w, `{"response":{"posts":[{"post":{
			"id":777,"title":"hello","content":"<p>body</p>","type":1,
			"blogInfo":{"blogId":12345,"blogName":"someblog","blogNickName":"Some Blog"}
		}}]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.FetchPostDetail(context.Background(), 12345, "someblog.lofter.com", "abc_def")
	require.NoError(t, err)

	post := resp.Post()
	require.NotNil(t, post)
	assert.Equal(t, int64(777), post.ID)
	assert.Equal(t, "hello", post.Title)
	assert.Equal(t, "Some Blog", post.BlogInfo.BlogNickName)
}

func TestFetchPostDetailMissingPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"posts":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchPostDetail(context.Background(), 1, "x.lofter.com", "gone")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
}

func TestCommentPageAPIErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":4200,"msg":"请先登录"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchCommentPage(context.Background(), 1, 2, 0)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 4200, apiErr.Code)
}

func TestDownloadPhoto(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	data, err := client.DownloadPhoto(context.Background(), server.URL+"/img/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestParsePostURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *PostRef
		wantErr bool
	}{
		{
			name: "standard blog post URL",
			url:  "https://zuodaoxing.lofter.com/post/30b9c9c3_2bf01fd95",
			want: &PostRef{PostID: "30b9c9c3_2bf01fd95", BlogName: "zuodaoxing"},
		},
		{
			name: "query parameter form",
			url:  "https://www.lofter.com/front/blog/view.do?blogId=817482179&postId=11794513301",
			want: &PostRef{PostID: "11794513301", BlogID: 817482179},
		},
		{
			name: "post ID embedded in path",
			url:  "https://someblog.lofter.com/view/30b9c9c3_2bf01fd95",
			want: &PostRef{PostID: "30b9c9c3_2bf01fd95", BlogName: "someblog"},
		},
		{
			name:    "not a lofter URL",
			url:     "https://example.com/post/abc_def",
			wantErr: true,
		},
		{
			name:    "no post reference",
			url:     "https://someblog.lofter.com/about",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePostURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestTimeoutApplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:    server.URL,
		Timeout:    50 * time.Millisecond,
		MaxRetries: 1,
		Logger:     logger.NewTestLogger(),
	})
	client.retryCfg.Backoff = &retry.ConstantBackoff{}

	_, err := client.ResolveBlogByID(context.Background(), 1)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNetwork, apiErr.Type)
}
