package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
)

const (
	ScanBody    = "body"
	ScanArticle = "article"
)

// PageScanner picks the part of a fetched page that is searched for emails:
// the whole body, or only the readability main content so site-wide footers
// and sidebars do not leak into results.
type PageScanner struct {
	mode string
}

func NewPageScanner(mode string) (*PageScanner, error) {
	switch mode {
	case "":
		mode = ScanBody
	case ScanBody, ScanArticle:
	default:
		return nil, fmt.Errorf("unsupported scan mode: %s", mode)
	}
	return &PageScanner{mode: mode}, nil
}

func (s *PageScanner) Run(body []byte, pageURL string) string {
	if s.mode != ScanArticle {
		return string(body)
	}

	content, err := s.extractArticle(body, pageURL)
	if err != nil {
		slog.Debug("Article extraction failed, scanning full body", "link", pageURL, "error", err)
		return string(body)
	}
	return content
}

func (s *PageScanner) extractArticle(body []byte, pageURL string) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return article.Content, nil
}
