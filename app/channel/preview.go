package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/mail-comb/app/fetch"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"golang.org/x/time/rate"
)

const (
	DefaultPreviewURL = "https://t.me/s/"
	defaultRetryAfter = 5 * time.Second
)

// PreviewClient reads a public channel through its web preview pages. It
// needs no session, so it is always authorized, but it cannot download
// attachments.
type PreviewClient struct {
	getter  fetch.Getter
	baseURL string
	limiter *rate.Limiter
}

var _ Client = (*PreviewClient)(nil)

// NewPreviewClient paces page requests to rps with a burst of one.
func NewPreviewClient(getter fetch.Getter, baseURL string, rps float64) *PreviewClient {
	if baseURL == "" {
		baseURL = DefaultPreviewURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if rps <= 0 {
		rps = 1
	}

	return &PreviewClient{
		getter:  getter,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *PreviewClient) Connect(ctx context.Context) error {
	return nil
}

func (c *PreviewClient) IsAuthorized(ctx context.Context) (bool, error) {
	return true, nil
}

func (c *PreviewClient) Resolve(ctx context.Context, name string) (Peer, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return Peer{}, fmt.Errorf("channel name is empty")
	}

	doc, err := c.fetchPage(ctx, name, 0)
	if err != nil {
		return Peer{}, err
	}

	title := strings.TrimSpace(doc.Find(".tgme_channel_info_header_title").First().Text())
	if title == "" && doc.Find(".tgme_widget_message[data-post]").Length() == 0 {
		return Peer{}, fmt.Errorf("channel %s has no public preview", name)
	}

	return Peer{Name: name, Title: title}, nil
}

func (c *PreviewClient) Messages(ctx context.Context, peer Peer) Iterator {
	return &previewIterator{client: c, peer: peer}
}

func (c *PreviewClient) DownloadAttachment(ctx context.Context, msg Message) ([]byte, error) {
	return nil, ErrAttachmentUnavailable
}

func (c *PreviewClient) Disconnect() error {
	return nil
}

func (c *PreviewClient) fetchPage(ctx context.Context, name string, before int64) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var params url.Values
	if before > 0 {
		params = url.Values{"before": {strconv.FormatInt(before, 10)}}
	}

	resp, err := c.getter.Get(ctx, c.baseURL+url.PathEscape(name), params)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &harvest.RateLimitError{Wait: retryAfter(resp.Header)}
	}
	if !resp.OK() {
		return nil, fmt.Errorf("preview page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview page: %w", err)
	}
	return doc, nil
}

type previewIterator struct {
	client  *PreviewClient
	peer    Peer
	pending []Message
	before  int64
	done    bool
}

func (it *previewIterator) Next(ctx context.Context) (Message, error) {
	for len(it.pending) == 0 {
		if it.done {
			return Message{}, io.EOF
		}

		doc, err := it.client.fetchPage(ctx, it.peer.Name, it.before)
		if err != nil {
			return Message{}, err
		}

		page := parseMessages(doc)
		if len(page) == 0 {
			it.done = true
			continue
		}

		oldest := page[len(page)-1].ID
		if it.before > 0 && oldest >= it.before {
			it.done = true
			continue
		}
		it.before = oldest
		it.pending = page
	}

	msg := it.pending[0]
	it.pending = it.pending[1:]
	return msg, nil
}

// parseMessages returns the posts of one preview page newest first. Posts
// without a parseable id or date are left out.
func parseMessages(doc *goquery.Document) []Message {
	var messages []Message

	doc.Find(".tgme_widget_message[data-post]").Each(func(_ int, s *goquery.Selection) {
		post, _ := s.Attr("data-post")
		_, rawID, found := strings.Cut(post, "/")
		if !found {
			return
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return
		}

		datetime, _ := s.Find(".tgme_widget_message_date time[datetime]").First().Attr("datetime")
		date, err := time.Parse(time.RFC3339, datetime)
		if err != nil {
			return
		}

		msg := Message{ID: id, Date: date}

		textSel := s.Find(".tgme_widget_message_text").First()
		textSel.Find("br").ReplaceWithHtml("\n")
		msg.Text = strings.TrimSpace(textSel.Text())

		if name := strings.TrimSpace(s.Find(".tgme_widget_message_document_title").First().Text()); name != "" {
			msg.Attachment = &Attachment{FileName: name, Ref: post}
		}

		messages = append(messages, msg)
	})

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}

func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header.Get("Retry-After")))
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
