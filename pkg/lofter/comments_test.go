package lofter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lofterscraper/pkg/logger"
	"lofterscraper/pkg/retry"
)

func commentPage(nextOffset int, hot, normal []*Comment) map[string]interface{} {
	return map[string]interface{}{
		"code": 0,
		"data": map[string]interface{}{
			"offset":  nextOffset,
			"list":    normal,
			"hotList": hot,
		},
	}
}

func replyPage(replies ...*Comment) map[string]interface{} {
	return map[string]interface{}{
		"code": 0,
		"data": map[string]interface{}{"list": replies},
	}
}

func TestFetchTreeAssemblesThreads(t *testing.T) {
	mux := http.NewServeMux()

	// Two pages of top-level comments; the hot comment repeats on the
	// normal list and must not be duplicated.
	mux.HandleFunc(L1CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			writeJSON(t, w, commentPage(20,
				[]*Comment{{ID: 100, Content: "hot one"}},
				[]*Comment{
					{ID: 100, Content: "hot one"},
					{ID: 101, Content: "plain", L2Count: 1, L2Comments: []*Comment{{ID: 201, Content: "embedded reply"}}},
				},
			))
		case "20":
			writeJSON(t, w, commentPage(-1,
				nil,
				[]*Comment{{ID: 102, Content: "needs fetch", L2Count: 2, L2Comments: []*Comment{{ID: 202, Content: "first reply"}}}},
			))
		default:
			t.Errorf("unexpected L1 offset %q", r.URL.Query().Get("offset"))
		}
	})

	mux.HandleFunc(L2CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "102", r.URL.Query().Get("id"))
		writeJSON(t, w, replyPage(
			&Comment{ID: 202, Content: "first reply"}, // duplicate of embedded
			&Comment{ID: 203, Content: "second reply"},
		))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewCommentFetcher(newTestClient(t, server.URL), 3, 0)
	report, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.NoError(t, err)
	require.Empty(t, report.Failures)
	require.Len(t, report.Threads, 3)

	byID := map[int64]*CommentThread{}
	for _, thread := range report.Threads {
		byID[thread.Comment.ID] = thread
	}

	assert.True(t, byID[100].Hot)
	assert.False(t, byID[101].Hot)

	require.Len(t, byID[101].Replies, 1, "embedded replies satisfy the declared count")
	require.Len(t, byID[102].Replies, 2, "fetched replies merge with embedded, deduped")
	assert.Equal(t, 6, report.TotalComments())
}

func TestFetchTreeRecordsReplyFailures(t *testing.T) {
	var l2Calls int32
	mux := http.NewServeMux()

	mux.HandleFunc(L1CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, commentPage(-1, nil, []*Comment{
			{ID: 301, Content: "fine", L2Count: 1},
			{ID: 302, Content: "broken replies", L2Count: 3},
		}))
	})

	mux.HandleFunc(L2CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&l2Calls, 1)
		if r.URL.Query().Get("id") == "302" {
			writeJSON(t, w, map[string]interface{}{"code": 500, "msg": "server busy"})
			return
		}
		writeJSON(t, w, replyPage(&Comment{ID: 401, Content: "ok reply"}))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewCommentFetcher(newTestClient(t, server.URL), 2, 0)
	report, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.NoError(t, err, "a reply failure must not abort the tree")

	require.Len(t, report.Threads, 2)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(302), report.Failures[0].CommentID)

	// The failed thread still carries its top-level comment.
	for _, thread := range report.Threads {
		require.NotNil(t, thread)
		if thread.Comment.ID == 301 {
			assert.Len(t, thread.Replies, 1)
		}
	}
}

func TestFetchTreeRejectsSelfReferencingReply(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc(L1CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, commentPage(-1, nil, []*Comment{
			{ID: 500, Content: "parent", L2Count: 1},
		}))
	})

	mux.HandleFunc(L2CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, replyPage(&Comment{ID: 500, Content: "I am my own parent"}))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewCommentFetcher(newTestClient(t, server.URL), 1, 0)
	report, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(500), report.Failures[0].CommentID)
	assert.Empty(t, report.Threads[0].Replies)
}

func TestFetchTreeSkipsReplyFetchWhenEmbedded(t *testing.T) {
	var l2Calls int32
	mux := http.NewServeMux()

	mux.HandleFunc(L1CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, commentPage(-1, nil, []*Comment{
			{ID: 600, Content: "all embedded", L2Count: 2, L2Comments: []*Comment{
				{ID: 601, Content: "r1"},
				{ID: 602, Content: "r2"},
			}},
		}))
	})

	mux.HandleFunc(L2CommentsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&l2Calls, 1)
		writeJSON(t, w, replyPage())
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := NewCommentFetcher(newTestClient(t, server.URL), 1, 0)
	report, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.NoError(t, err)

	assert.Len(t, report.Threads[0].Replies, 2)
	assert.Equal(t, int32(0), atomic.LoadInt32(&l2Calls),
		"no reply request when the embedded list already covers l2Count")
}

func TestFetchTreeAbortsOnListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:    server.URL,
		MaxRetries: 1,
		Logger:     logger.NewTestLogger(),
	})
	client.retryCfg.Backoff = &retry.ConstantBackoff{}

	fetcher := NewCommentFetcher(client, 1, 0)
	_, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.Error(t, err)
}

func TestFetchTreeEmptyPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, commentPage(-1, nil, nil))
	}))
	defer server.Close()

	fetcher := NewCommentFetcher(newTestClient(t, server.URL), 2, 0)
	report, err := fetcher.FetchTree(context.Background(), 55, 66)
	require.NoError(t, err)
	assert.Empty(t, report.Threads)
	assert.Equal(t, 0, report.TotalComments())
}
