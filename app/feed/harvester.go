package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/mail-comb/app/fetch"
	"github.com/lysyi3m/mail-comb/app/harvest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultPageSize    = 100
	DefaultConcurrency = 10
	DefaultDelay       = time.Second

	feedPath = "/feeds/posts/summary/-/"
)

type Settings struct {
	BaseURL     string
	Categories  []string
	PageSize    int
	Concurrency int
	PageDelay   time.Duration
	RetryDelay  time.Duration
	Decoder     Decoder
	Scanner     *PageScanner
}

// Harvester walks the category feeds of one site and scans every linked post
// published inside the window for emails.
type Harvester struct {
	getter   fetch.Getter
	settings Settings
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewHarvester(getter fetch.Getter, settings Settings) *Harvester {
	if settings.PageSize <= 0 {
		settings.PageSize = DefaultPageSize
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = DefaultConcurrency
	}
	if settings.PageDelay <= 0 {
		settings.PageDelay = DefaultDelay
	}
	if settings.RetryDelay <= 0 {
		settings.RetryDelay = DefaultDelay
	}
	if settings.Decoder == nil {
		settings.Decoder = &JSONDecoder{}
	}
	if settings.Scanner == nil {
		settings.Scanner = &PageScanner{mode: ScanBody}
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	return &Harvester{
		getter:   getter,
		settings: settings,
		sleep:    harvest.Sleep,
	}
}

func (h *Harvester) Run(ctx context.Context, window harvest.Window, sink harvest.ProgressSink) (harvest.Result, error) {
	state := harvest.NewState(harvest.FeedColumns...)
	gate := semaphore.NewWeighted(int64(h.settings.Concurrency))
	total := len(h.settings.Categories)

	for idx, category := range h.settings.Categories {
		sink.Report(harvest.Progress{
			Index:        idx + 1,
			Total:        total,
			Category:     category,
			UniqueEmails: state.UniqueEmails(),
		})

		if err := h.harvestCategory(ctx, state, gate, window, category); err != nil {
			return state.Result(), err
		}
	}

	if err := h.retryQueued(ctx, state); err != nil {
		return state.Result(), err
	}

	return state.Result(), nil
}

func (h *Harvester) harvestCategory(ctx context.Context, state *harvest.State, gate *semaphore.Weighted, window harvest.Window, category string) error {
	feedURL := h.settings.BaseURL + feedPath + escapeCategory(category)

	for startIndex := 1; ; startIndex += h.settings.PageSize {
		entries, ok := h.fetchPage(ctx, state, feedURL, startIndex)
		if !ok || len(entries) == 0 {
			slog.Debug("Category finished", "category", category, "start_index", startIndex)
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		stopCategory := false

		for _, entry := range entries {
			if entry.Published == "" {
				state.Observe(harvest.OutcomeSkipped)
				continue
			}

			published, err := time.Parse(time.RFC3339, entry.Published)
			if err != nil {
				slog.Debug("Unparseable publish date", "category", category, "published", entry.Published, "error", err)
				state.Observe(harvest.OutcomeSkipped)
				continue
			}

			// Entries are newest first: one entry below the floor ends the
			// category, but entries above the ceiling are only skipped.
			position := window.LocateDate(published)
			if position == harvest.Before {
				stopCategory = true
				break
			}
			if position == harvest.After {
				state.Observe(harvest.OutcomeSkipped)
				continue
			}

			if entry.Link == "" || !state.MarkLink(entry.Link) {
				state.Observe(harvest.OutcomeSkipped)
				continue
			}

			target := harvest.RetryEntry{
				Title:     entry.Title,
				Published: harvest.FormatDate(published),
				Link:      entry.Link,
			}
			g.Go(func() error {
				return h.fetchEntry(gctx, state, gate, target)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		if stopCategory {
			slog.Debug("Reached entries older than window", "category", category, "start_index", startIndex)
			return nil
		}

		if err := h.sleep(ctx, h.settings.PageDelay); err != nil {
			return err
		}
	}
}

func (h *Harvester) fetchPage(ctx context.Context, state *harvest.State, feedURL string, startIndex int) ([]Entry, bool) {
	params := url.Values{
		"alt":         {h.settings.Decoder.Alt()},
		"start-index": {strconv.Itoa(startIndex)},
		"max-results": {strconv.Itoa(h.settings.PageSize)},
	}

	resp, err := h.getter.Get(ctx, feedURL, params)
	if err != nil {
		slog.Warn("Feed page request failed", "url", feedURL, "start_index", startIndex, "error", err)
		state.Observe(harvest.OutcomeFailed)
		return nil, false
	}
	if !resp.OK() {
		slog.Debug("Feed page returned non-success status", "url", feedURL, "start_index", startIndex, "status", resp.StatusCode)
		return nil, false
	}

	entries, err := h.settings.Decoder.Decode(resp.Body)
	if err != nil {
		slog.Warn("Feed page could not be decoded", "url", feedURL, "start_index", startIndex, "error", err)
		state.Observe(harvest.OutcomeFailed)
		return nil, false
	}

	return entries, true
}

// fetchEntry only returns an error when the admission gate cannot be acquired.
func (h *Harvester) fetchEntry(ctx context.Context, state *harvest.State, gate *semaphore.Weighted, target harvest.RetryEntry) error {
	if err := gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer gate.Release(1)

	resp, err := h.getter.Get(ctx, target.Link, nil)
	if err != nil {
		slog.Debug("Post fetch failed", "link", target.Link, "error", err)
		state.Observe(harvest.OutcomeFailed)
		return nil
	}

	switch {
	case isTransientOverload(resp.StatusCode):
		slog.Debug("Post fetch queued for retry", "link", target.Link, "status", resp.StatusCode)
		state.Queue(target)
	case !resp.OK():
		slog.Debug("Post fetch dropped", "link", target.Link, "status", resp.StatusCode)
		state.Observe(harvest.OutcomeDropped)
	default:
		h.recordPage(state, target, resp.Body)
	}

	return nil
}

func (h *Harvester) retryQueued(ctx context.Context, state *harvest.State) error {
	queued := state.Retries()
	if len(queued) == 0 {
		return nil
	}

	slog.Info("Retrying overloaded fetches", "count", len(queued))

	for i, target := range queued {
		if i > 0 {
			if err := h.sleep(ctx, h.settings.RetryDelay); err != nil {
				return err
			}
		}

		resp, err := h.getter.Get(ctx, target.Link, nil)
		if err != nil {
			slog.Debug("Retry failed", "link", target.Link, "error", err)
			state.Observe(harvest.OutcomeFailed)
			continue
		}
		if !resp.OK() {
			slog.Debug("Retry dropped", "link", target.Link, "status", resp.StatusCode)
			state.Observe(harvest.OutcomeDropped)
			continue
		}

		state.Observe(harvest.OutcomeRetried)
		h.recordPage(state, target, resp.Body)
	}

	return nil
}

func (h *Harvester) recordPage(state *harvest.State, target harvest.RetryEntry, body []byte) {
	text := h.settings.Scanner.Run(body, target.Link)
	for _, email := range harvest.ExtractEmails(text) {
		state.Record(email, []string{target.Title, target.Published, target.Link, email})
	}
}

func isTransientOverload(status int) bool {
	return status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests
}

// escapeCategory percent-encodes a label as a single path segment, spaces as %20.
func escapeCategory(category string) string {
	return strings.ReplaceAll(url.QueryEscape(category), "+", "%20")
}

func (s Settings) String() string {
	return fmt.Sprintf("%s (%d categories, page size %d, concurrency %d)", s.BaseURL, len(s.Categories), s.PageSize, s.Concurrency)
}
