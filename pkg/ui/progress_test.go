package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestBar(t *testing.T) {
	if got := Bar(5, 10); !strings.Contains(got, "5/10") {
		t.Errorf("Bar(5, 10) = %q, expected counts", got)
	}
	if got := Bar(15, 10); !strings.Contains(got, "15/10") {
		t.Errorf("Bar should not panic past total, got %q", got)
	}
	if got := Bar(3, 0); !strings.Contains(got, "3") {
		t.Errorf("Bar with zero total should still show done, got %q", got)
	}
}

func TestConsoleWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsole(&buf, false)
	console.Infof("tag", "%s", "fandom")
	console.Errorf("failed %d items", 2)

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Errorf("expected no ANSI escapes, got %q", out)
	}
	if !strings.Contains(out, "tag: fandom") || !strings.Contains(out, "failed 2 items") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestTrackerCounts(t *testing.T) {
	tracker := NewTracker()
	tracker.AddPost()
	tracker.AddPost()
	tracker.AddImages(3)
	tracker.AddComments(7)
	tracker.AddFailure()

	posts, images, comments, failures := tracker.Counts()
	if posts != 2 || images != 3 || comments != 7 || failures != 1 {
		t.Errorf("unexpected counts: %d %d %d %d", posts, images, comments, failures)
	}
	if !strings.Contains(tracker.Summary(), "posts 2") {
		t.Errorf("unexpected summary: %q", tracker.Summary())
	}
}
