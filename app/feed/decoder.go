package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mmcdole/gofeed"
)

const (
	FormatJSON = "json"
	FormatAtom = "atom"
)

// Entry is one post summary from a category feed page.
type Entry struct {
	Title     string
	Published string
	Link      string
}

// Decoder turns a feed page into entries. Alt is the value sent as the
// "alt" query parameter.
type Decoder interface {
	Alt() string
	Decode(data []byte) ([]Entry, error)
}

func NewDecoder(format string) (Decoder, error) {
	switch format {
	case "", FormatJSON:
		return &JSONDecoder{}, nil
	case FormatAtom:
		return NewAtomDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", format)
	}
}

type JSONDecoder struct{}

type textNode struct {
	T string `json:"$t"`
}

type jsonFeed struct {
	Feed struct {
		Entry []struct {
			Title     textNode `json:"title"`
			Published textNode `json:"published"`
			Link      []struct {
				Rel  string `json:"rel"`
				Href string `json:"href"`
			} `json:"link"`
		} `json:"entry"`
	} `json:"feed"`
}

func (d *JSONDecoder) Alt() string {
	return FormatJSON
}

func (d *JSONDecoder) Decode(data []byte) ([]Entry, error) {
	var doc jsonFeed
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed JSON: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Feed.Entry))
	for _, e := range doc.Feed.Entry {
		entry := Entry{
			Title:     e.Title.T,
			Published: e.Published.T,
		}
		// Last alternate link wins.
		for _, l := range e.Link {
			if l.Rel == "alternate" {
				entry.Link = l.Href
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

type AtomDecoder struct {
	gofeedParser *gofeed.Parser
}

func NewAtomDecoder() *AtomDecoder {
	return &AtomDecoder{
		gofeedParser: gofeed.NewParser(),
	}
}

func (d *AtomDecoder) Alt() string {
	return FormatAtom
}

func (d *AtomDecoder) Decode(data []byte) ([]Entry, error) {
	feed, err := d.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, Entry{
			Title:     item.Title,
			Published: item.Published,
			Link:      item.Link,
		})
	}

	return entries, nil
}
