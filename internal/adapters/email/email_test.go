package email

import (
	"context"
	"strings"
	"testing"
)

// TestRenderMarkdown_Basic verifies headings and emphasis are converted.
func TestRenderMarkdown_Basic(t *testing.T) {
	html, err := RenderMarkdown("# Fine\n\nYou owe **10000**.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "<h1>Fine</h1>") {
		t.Errorf("expected heading, got %q", html)
	}
	if !strings.Contains(html, "<strong>10000</strong>") {
		t.Errorf("expected bold amount, got %q", html)
	}
}

// TestRenderMarkdown_DropsRawHTML verifies raw HTML is not passed through.
func TestRenderMarkdown_DropsRawHTML(t *testing.T) {
	html, err := RenderMarkdown("<script>alert(1)</script>\n\nhello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw script tag leaked: %q", html)
	}
	if !strings.Contains(html, "hello") {
		t.Errorf("expected body text, got %q", html)
	}
}

// TestNoopSender_RemembersBatch verifies every batched request is recorded.
func TestNoopSender_RemembersBatch(t *testing.T) {
	s := NewNoopSender()
	results, err := s.SendBatch(context.Background(), []SendRequest{
		{To: []string{"a@example.com"}, Subject: "one"},
		{To: []string{"b@example.com"}, Subject: "two"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].MessageID == results[1].MessageID {
		t.Error("expected distinct message ids")
	}
	sent := s.Sent()
	if len(sent) != 2 || sent[1].Subject != "two" {
		t.Errorf("unexpected recorded sends: %+v", sent)
	}
}

// TestResendSender_DefaultsFromAndReplyTo verifies request fields fall back to sender defaults.
func TestResendSender_DefaultsFromAndReplyTo(t *testing.T) {
	s := NewResendSender("re_test", "Club <fines@example.com>", "admin@example.com")
	p := s.params(SendRequest{To: []string{"a@example.com"}, Subject: "x", HTML: "<p>x</p>"})
	if p.From != "Club <fines@example.com>" {
		t.Errorf("expected default from, got %q", p.From)
	}
	if p.ReplyTo != "admin@example.com" {
		t.Errorf("expected default reply-to, got %q", p.ReplyTo)
	}

	p = s.params(SendRequest{From: "other@example.com", ReplyTo: "r@example.com"})
	if p.From != "other@example.com" || p.ReplyTo != "r@example.com" {
		t.Errorf("expected explicit values kept, got from=%q replyTo=%q", p.From, p.ReplyTo)
	}
}
