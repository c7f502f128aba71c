package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lysyi3m/mail-comb/app/fetch"
	"github.com/lysyi3m/mail-comb/app/harvest"
)

func previewPost(channel string, id int, datetime, textHTML, document string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="tgme_widget_message_wrap"><div class="tgme_widget_message" data-post="%s/%d">`, channel, id)
	if document != "" {
		fmt.Fprintf(&b, `<a class="tgme_widget_message_document_wrap"><div class="tgme_widget_message_document_title">%s</div></a>`, document)
	}
	if textHTML != "" {
		fmt.Fprintf(&b, `<div class="tgme_widget_message_text js-message_text">%s</div>`, textHTML)
	}
	fmt.Fprintf(&b, `<div class="tgme_widget_message_footer"><a class="tgme_widget_message_date"><time datetime="%s" class="time">12:00</time></a></div>`, datetime)
	b.WriteString(`</div></div>`)
	return b.String()
}

func previewHTML(title string, posts ...string) string {
	return `<html><body><div class="tgme_channel_info"><div class="tgme_channel_info_header_title"><span>` + title +
		`</span></div></div><section class="tgme_channel_history">` + strings.Join(posts, "") + `</section></body></html>`
}

func newPreviewClient(t *testing.T, serverURL string) *PreviewClient {
	t.Helper()
	client, err := fetch.NewClient(fetch.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewPreviewClient(client, serverURL+"/s/", 1000)
}

func TestPreviewClient_PagesNewestFirst(t *testing.T) {
	var befores []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s/saudia_jobs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		before := r.URL.Query().Get("before")
		befores = append(befores, before)

		switch before {
		case "":
			fmt.Fprint(w, previewHTML("Saudi Jobs",
				previewPost("saudia_jobs", 11, "2024-01-09T10:00:00+00:00", "Driver<br/>mail a@x.com", ""),
				previewPost("saudia_jobs", 12, "2024-01-10T10:00:00+00:00", "Accountant<br>hr@x.com", "cv.pdf"),
			))
		case "11":
			fmt.Fprint(w, previewHTML("Saudi Jobs",
				previewPost("saudia_jobs", 9, "2024-01-08T10:00:00+00:00", "Cook", ""),
				previewPost("saudia_jobs", 10, "bad-date", "Broken", ""),
			))
		default:
			fmt.Fprint(w, previewHTML("Saudi Jobs"))
		}
	}))
	defer server.Close()

	client := newPreviewClient(t, server.URL)
	ctx := context.Background()

	peer, err := client.Resolve(ctx, "@saudia_jobs")
	if err != nil {
		t.Fatal(err)
	}
	if peer.Name != "saudia_jobs" || peer.Title != "Saudi Jobs" {
		t.Errorf("Unexpected peer: %+v", peer)
	}

	it := client.Messages(ctx, peer)
	var got []Message
	for {
		msg, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, msg)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	if got[0].ID != 12 || got[1].ID != 11 || got[2].ID != 9 {
		t.Errorf("Expected ids 12, 11, 9, got %d, %d, %d", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Text != "Accountant\nhr@x.com" {
		t.Errorf("Expected line breaks in text, got %q", got[0].Text)
	}
	if got[0].Attachment == nil || got[0].Attachment.FileName != "cv.pdf" {
		t.Errorf("Expected cv.pdf attachment, got %+v", got[0].Attachment)
	}
	if got[1].Attachment != nil {
		t.Errorf("Expected no attachment, got %+v", got[1].Attachment)
	}
	if got[2].Date.Day() != 8 {
		t.Errorf("Expected date 2024-01-08, got %s", got[2].Date)
	}

	expected := []string{"", "", "11", "9"}
	if strings.Join(befores, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected requests %v, got %v", expected, befores)
	}
}

func TestPreviewClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newPreviewClient(t, server.URL)
	_, err := client.Messages(context.Background(), Peer{Name: "jobs"}).Next(context.Background())

	var rateLimit *harvest.RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if rateLimit.Wait.Seconds() != 7 {
		t.Errorf("Expected 7s wait, got %s", rateLimit.Wait)
	}
}

func TestPreviewClient_ResolveMissingChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="tgme_page">Nothing here</div></body></html>`)
	}))
	defer server.Close()

	client := newPreviewClient(t, server.URL)
	if _, err := client.Resolve(context.Background(), "missing"); err == nil {
		t.Error("Expected error for channel without preview")
	}
}

func TestPreviewClient_AttachmentUnavailable(t *testing.T) {
	client := NewPreviewClient(nil, "", 0)
	_, err := client.DownloadAttachment(context.Background(), Message{ID: 1, Attachment: &Attachment{FileName: "a.pdf"}})
	if !errors.Is(err, ErrAttachmentUnavailable) {
		t.Errorf("Expected ErrAttachmentUnavailable, got %v", err)
	}
	if client.baseURL != DefaultPreviewURL {
		t.Errorf("Expected default base URL, got %s", client.baseURL)
	}
}

func TestRetryAfter(t *testing.T) {
	header := http.Header{}
	if got := retryAfter(header); got != defaultRetryAfter {
		t.Errorf("Expected default wait, got %s", got)
	}
	header.Set("Retry-After", "30")
	if got := retryAfter(header); got.Seconds() != 30 {
		t.Errorf("Expected 30s, got %s", got)
	}
}
