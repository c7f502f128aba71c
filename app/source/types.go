package source

import (
	"time"
)

type Kind string

const (
	KindFeed    Kind = "feed"
	KindChannel Kind = "channel"
)

const feedExportFileName = "unique_job_emails.xlsx"

type Config struct {
	Name    string           // Derived from filename (without .yml extension)
	Kind    Kind             `yaml:"kind"`
	Title   string           `yaml:"title"`
	Feed    *FeedSettings    `yaml:"feed"`
	Channel *ChannelSettings `yaml:"channel"`
}

type FeedSettings struct {
	BaseURL     string   `yaml:"base_url"`
	Format      string   `yaml:"format"`
	PageSize    int      `yaml:"page_size"`
	Concurrency int      `yaml:"concurrency"`
	PageDelay   float64  `yaml:"page_delay"`  // seconds
	RetryDelay  float64  `yaml:"retry_delay"` // seconds
	Scan        string   `yaml:"scan"`
	Referer     string   `yaml:"referer"`
	Categories  []string `yaml:"categories"`
}

type ChannelSettings struct {
	Name              string  `yaml:"name"`
	Mode              string  `yaml:"mode"`
	DocumentExt       string  `yaml:"document_ext"`
	SectionStart      string  `yaml:"section_start"`
	SectionEnd        string  `yaml:"section_end"`
	PreviewURL        string  `yaml:"preview_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

func (c *Config) ExportFileName() string {
	if c.Kind == KindFeed {
		return feedExportFileName
	}
	return c.Name + "_emails.xlsx"
}

func (s *FeedSettings) PageDelayDuration() time.Duration {
	return time.Duration(s.PageDelay * float64(time.Second))
}

func (s *FeedSettings) RetryDelayDuration() time.Duration {
	return time.Duration(s.RetryDelay * float64(time.Second))
}
