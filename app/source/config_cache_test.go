package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadFeedConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "gulf", `
kind: feed
title: Gulf Jobs

feed:
  base_url: https://jobs.example
  format: atom
  page_size: 50
  concurrency: 4
  page_delay: 0.5
  scan: article
  referer: https://jobs.example/
  categories:
    - Qatar jobs today
    - Technical & Engineering Jobs
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 source, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("gulf")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "gulf" {
		t.Errorf("Expected name 'gulf', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.Kind != KindFeed {
		t.Errorf("Expected kind 'feed', got '%s'", sourceConfig.Kind)
	}

	s := sourceConfig.Feed
	if s.Format != "atom" || s.Scan != "article" {
		t.Errorf("Expected atom/article, got %s/%s", s.Format, s.Scan)
	}
	if s.PageSize != 50 || s.Concurrency != 4 {
		t.Errorf("Expected page size 50 and concurrency 4, got %d and %d", s.PageSize, s.Concurrency)
	}
	if s.PageDelayDuration() != 500*time.Millisecond {
		t.Errorf("Expected page delay 500ms, got %v", s.PageDelayDuration())
	}
	if s.RetryDelayDuration() != time.Second {
		t.Errorf("Expected default retry delay 1s, got %v", s.RetryDelayDuration())
	}
	if len(s.Categories) != 2 || s.Categories[1] != "Technical & Engineering Jobs" {
		t.Errorf("Unexpected categories: %v", s.Categories)
	}
	if sourceConfig.ExportFileName() != "unique_job_emails.xlsx" {
		t.Errorf("Expected 'unique_job_emails.xlsx', got '%s'", sourceConfig.ExportFileName())
	}
}

func TestConfigCacheLoadChannelConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "qatar", `
kind: channel
channel:
  name: m_jobvacancies
  mode: document
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("qatar")
	if err != nil {
		t.Fatal(err)
	}

	s := sourceConfig.Channel
	if s.DocumentExt != ".pdf" {
		t.Errorf("Expected default document extension '.pdf', got '%s'", s.DocumentExt)
	}
	if s.SectionStart != "SITUATION VACANT" || s.SectionEnd != "SITUATION WANTED" {
		t.Errorf("Unexpected default markers: %s / %s", s.SectionStart, s.SectionEnd)
	}
	if s.PreviewURL != "https://t.me/s/" {
		t.Errorf("Expected default preview URL, got '%s'", s.PreviewURL)
	}
	if sourceConfig.ExportFileName() != "qatar_emails.xlsx" {
		t.Errorf("Expected 'qatar_emails.xlsx', got '%s'", sourceConfig.ExportFileName())
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := map[string]struct {
		content string
		errPart string
	}{
		"missing kind": {
			content: "title: nothing\n",
			errPart: "kind is required",
		},
		"unknown kind": {
			content: "kind: forum\n",
			errPart: "unknown kind",
		},
		"feed without base URL": {
			content: "kind: feed\nfeed:\n  categories: [a]\n",
			errPart: "base URL is required",
		},
		"feed without categories": {
			content: "kind: feed\nfeed:\n  base_url: https://jobs.example\n",
			errPart: "at least one category",
		},
		"feed with negative concurrency": {
			content: "kind: feed\nfeed:\n  base_url: https://jobs.example\n  concurrency: -1\n  categories: [a]\n",
			errPart: "concurrency must be non-negative",
		},
		"feed with unknown format": {
			content: "kind: feed\nfeed:\n  base_url: https://jobs.example\n  format: csv\n  categories: [a]\n",
			errPart: "unsupported feed format",
		},
		"channel without settings": {
			content: "kind: channel\n",
			errPart: "channel settings are required",
		},
		"channel with unknown mode": {
			content: "kind: channel\nchannel:\n  name: jobs\n  mode: video\n",
			errPart: "unknown channel mode",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSource(t, tempDir, "broken", tt.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing '%s', got '%v'", tt.errPart, err)
			}
		})
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "absent"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected no sources, got %d", configCache.GetConfigCount())
	}
	if _, err := configCache.GetConfig("saudi"); err == nil {
		t.Error("Expected error for unknown source")
	}
}

func TestConfigCacheShippedSources(t *testing.T) {
	configCache := NewConfigCache(filepath.Join("..", "..", "sources"))
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	configs := configCache.GetConfigs()
	if len(configs) != 3 {
		t.Fatalf("Expected 3 shipped sources, got %d", len(configs))
	}
	if configs[0].Name != "gulfjobs" || configs[1].Name != "qatar" || configs[2].Name != "saudi" {
		t.Errorf("Expected sources ordered by name, got %s, %s, %s", configs[0].Name, configs[1].Name, configs[2].Name)
	}
	if n := len(configs[0].Feed.Categories); n != 30 {
		t.Errorf("Expected 30 categories, got %d", n)
	}
	if configs[2].Channel.Name != "saudia_jobs" || configs[2].Channel.Mode != "text" {
		t.Errorf("Unexpected saudi channel settings: %+v", configs[2].Channel)
	}
}
