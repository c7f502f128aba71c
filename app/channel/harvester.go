package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/mail-comb/app/harvest"
)

// Harvester reads one channel newest first and extracts emails from the
// messages published inside the window.
type Harvester struct {
	client   Client
	settings Settings
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewHarvester(client Client, settings Settings) *Harvester {
	if settings.Mode == "" {
		settings.Mode = ModeText
	}
	if settings.DocumentExt == "" {
		settings.DocumentExt = DefaultDocumentExt
	}
	if settings.SectionStart == "" {
		settings.SectionStart = DefaultSectionStart
	}
	if settings.SectionEnd == "" {
		settings.SectionEnd = DefaultSectionEnd
	}

	return &Harvester{
		client:   client,
		settings: settings,
		sleep:    harvest.Sleep,
	}
}

func (h *Harvester) Columns() []string {
	if h.settings.Mode == ModeDocument {
		return harvest.DocumentColumns
	}
	return harvest.TextColumns
}

func (h *Harvester) Run(ctx context.Context, window harvest.Window, sink harvest.ProgressSink) (harvest.Result, error) {
	state := harvest.NewState(h.Columns()...)

	if err := h.client.Connect(ctx); err != nil {
		slog.Warn("Channel client could not connect", "channel", h.settings.Channel, "error", err)
		return state.Result(), nil
	}
	defer func() {
		if err := h.client.Disconnect(); err != nil {
			slog.Debug("Channel client disconnect failed", "channel", h.settings.Channel, "error", err)
		}
	}()

	authorized, err := h.client.IsAuthorized(ctx)
	if err != nil || !authorized {
		slog.Warn("Channel client is not authorized", "channel", h.settings.Channel, "error", err)
		return state.Result(), nil
	}

	peer, err := h.client.Resolve(ctx, h.settings.Channel)
	if err != nil {
		slog.Warn("Channel could not be resolved", "channel", h.settings.Channel, "error", err)
		return state.Result(), nil
	}

	sink.Report(harvest.Progress{Message: fmt.Sprintf("Reading channel %s", h.settings.Channel)})

	messages, err := h.collect(ctx, state, peer, window)
	if err != nil {
		return state.Result(), err
	}

	sink.Report(harvest.Progress{Message: fmt.Sprintf("Extracting emails from %d messages", len(messages))})

	for _, msg := range messages {
		if err := h.extract(ctx, state, msg); err != nil {
			return state.Result(), err
		}
	}

	return state.Result(), nil
}

// collect only returns an error when ctx is done.
func (h *Harvester) collect(ctx context.Context, state *harvest.State, peer Peer, window harvest.Window) ([]Message, error) {
	it := h.client.Messages(ctx, peer)
	var messages []Message

	for {
		msg, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return messages, ctx.Err()
			}

			var rateLimit *harvest.RateLimitError
			if errors.As(err, &rateLimit) {
				state.Observe(harvest.OutcomeRateLimited)
				slog.Info("Channel stream rate limited", "channel", peer.Name, "wait", rateLimit.Wait)
				if err := h.sleep(ctx, rateLimit.Wait); err != nil {
					return messages, err
				}
				continue
			}

			slog.Warn("Channel stream ended early", "channel", peer.Name, "collected", len(messages), "error", err)
			return messages, nil
		}

		position := window.Locate(msg.Date)
		if position == harvest.Before {
			return messages, nil
		}
		if position == harvest.After {
			state.Observe(harvest.OutcomeSkipped)
			continue
		}
		messages = append(messages, msg)
	}
}

// extract only returns an error when ctx is done.
func (h *Harvester) extract(ctx context.Context, state *harvest.State, msg Message) error {
	var err error
	switch h.settings.Mode {
	case ModeDocument:
		err = h.extractDocument(ctx, state, msg)
	default:
		h.extractText(state, msg)
	}
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var rateLimit *harvest.RateLimitError
	if errors.As(err, &rateLimit) {
		state.Observe(harvest.OutcomeRateLimited)
		slog.Info("Attachment download rate limited", "message_id", msg.ID, "wait", rateLimit.Wait)
		return h.sleep(ctx, rateLimit.Wait)
	}

	state.Observe(harvest.OutcomeFailed)
	slog.Debug("Message skipped", "message_id", msg.ID, "error", err)
	return nil
}

func (h *Harvester) extractText(state *harvest.State, msg Message) {
	if msg.Text == "" {
		state.Observe(harvest.OutcomeSkipped)
		return
	}

	date := harvest.FormatDate(msg.Date.UTC())
	title := harvest.FirstLine(msg.Text)
	for _, email := range harvest.ExtractEmails(msg.Text) {
		state.Record(email, []string{email, title, date})
	}
}

func (h *Harvester) extractDocument(ctx context.Context, state *harvest.State, msg Message) error {
	if msg.Attachment == nil || !strings.HasSuffix(strings.ToLower(msg.Attachment.FileName), strings.ToLower(h.settings.DocumentExt)) {
		state.Observe(harvest.OutcomeSkipped)
		return nil
	}
	if h.settings.Extractor == nil {
		return fmt.Errorf("no text extractor configured for %s", h.settings.DocumentExt)
	}

	data, err := h.client.DownloadAttachment(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", msg.Attachment.FileName, err)
	}
	if len(data) == 0 {
		state.Observe(harvest.OutcomeSkipped)
		return nil
	}

	text, err := h.settings.Extractor.ExtractText(data)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", msg.Attachment.FileName, err)
	}

	section, found := Section(text, h.settings.SectionStart, h.settings.SectionEnd)
	if !found {
		slog.Debug("Section start marker not found", "message_id", msg.ID, "file", msg.Attachment.FileName)
		state.Observe(harvest.OutcomeSkipped)
		return nil
	}

	date := harvest.FormatDate(msg.Date.UTC())
	for _, email := range harvest.ExtractEmails(section) {
		state.Record(email, []string{date, email})
	}
	return nil
}

// Section returns the text between the start marker and the next end marker
// after it, or to the end of text when no end marker follows. Markers are
// matched case-insensitively after Unicode folding; the returned text keeps
// its original case.
func Section(text, start, end string) (string, bool) {
	folded := harvest.FoldText(text)

	from := indexFold(folded, start, 0)
	if from == -1 {
		return "", false
	}

	section := folded[from:]
	if end != "" {
		if to := indexFold(folded, end, from+len(start)); to != -1 {
			section = folded[from:to]
		}
	}
	return section, true
}

// indexFold returns the byte offset of the first case-insensitive match of
// marker in s at or after offset, or -1.
func indexFold(s, marker string, offset int) int {
	if marker == "" {
		return offset
	}
	n := utf8.RuneCountInString(marker)

	for i := offset; i < len(s); {
		end := i
		for k := 0; k < n && end < len(s); k++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		if strings.EqualFold(s[i:end], marker) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}
