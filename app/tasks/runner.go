package tasks

import (
	"errors"
	"fmt"

	"github.com/lysyi3m/mail-comb/app/channel"
	"github.com/lysyi3m/mail-comb/app/feed"
	"github.com/lysyi3m/mail-comb/app/fetch"
	"github.com/lysyi3m/mail-comb/app/source"
)

var (
	_ HarvesterBuilder = (*SourceRunner)(nil)
	_ SourceChecker    = (*SourceRunner)(nil)
)

var ErrSessionRequired = errors.New("document mode requires a Telegram session")

// SourceRunner builds the harvester matching a source's kind, sharing one
// HTTP client across sources. Channel sources use the Telegram session when
// one is configured and fall back to the public web preview otherwise.
type SourceRunner struct {
	client      *fetch.Client
	extractor   channel.TextExtractor
	credentials channel.Credentials
}

func NewSourceRunner(client *fetch.Client, extractor channel.TextExtractor, credentials channel.Credentials) *SourceRunner {
	return &SourceRunner{
		client:      client,
		extractor:   extractor,
		credentials: credentials,
	}
}

func (r *SourceRunner) Build(sourceConfig *source.Config) (Harvester, error) {
	switch sourceConfig.Kind {
	case source.KindFeed:
		return r.buildFeed(sourceConfig.Feed)
	case source.KindChannel:
		return r.buildChannel(sourceConfig.Channel)
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", sourceConfig.Kind)
	}
}

func (r *SourceRunner) buildFeed(s *source.FeedSettings) (Harvester, error) {
	if s == nil {
		return nil, fmt.Errorf("feed settings are missing")
	}

	decoder, err := feed.NewDecoder(s.Format)
	if err != nil {
		return nil, err
	}
	scanner, err := feed.NewPageScanner(s.Scan)
	if err != nil {
		return nil, err
	}

	getter := r.client.WithHeaders(map[string]string{"Referer": s.Referer})

	return feed.NewHarvester(getter, feed.Settings{
		BaseURL:     s.BaseURL,
		Categories:  s.Categories,
		PageSize:    s.PageSize,
		Concurrency: s.Concurrency,
		PageDelay:   s.PageDelayDuration(),
		RetryDelay:  s.RetryDelayDuration(),
		Decoder:     decoder,
		Scanner:     scanner,
	}), nil
}

func (r *SourceRunner) buildChannel(s *source.ChannelSettings) (Harvester, error) {
	if s == nil {
		return nil, fmt.Errorf("channel settings are missing")
	}

	client, err := r.channelClient(s)
	if err != nil {
		return nil, err
	}

	return channel.NewHarvester(client, channel.Settings{
		Channel:      s.Name,
		Mode:         channel.Mode(s.Mode),
		DocumentExt:  s.DocumentExt,
		SectionStart: s.SectionStart,
		SectionEnd:   s.SectionEnd,
		Extractor:    r.extractor,
	}), nil
}

func (r *SourceRunner) channelClient(s *source.ChannelSettings) (channel.Client, error) {
	if r.credentials.IsSet() {
		return channel.NewMTProtoClient(r.credentials)
	}
	if err := r.checkChannel(s); err != nil {
		return nil, err
	}
	return channel.NewPreviewClient(r.client, s.PreviewURL, s.RequestsPerSecond), nil
}

// Check reports whether the source can be harvested with the configured
// credentials. The web preview cannot download attachments.
func (r *SourceRunner) Check(sourceConfig *source.Config) error {
	if sourceConfig.Kind != source.KindChannel || sourceConfig.Channel == nil {
		return nil
	}
	return r.checkChannel(sourceConfig.Channel)
}

func (r *SourceRunner) checkChannel(s *source.ChannelSettings) error {
	if !r.credentials.IsSet() && channel.Mode(s.Mode) == channel.ModeDocument {
		return fmt.Errorf("%w: channel %s", ErrSessionRequired, s.Name)
	}
	return nil
}
