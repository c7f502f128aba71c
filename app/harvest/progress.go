package harvest

import "fmt"

// Progress is a status update emitted while a run is in flight. Feed runs fill
// the category fields; other updates carry a free-form Message.
type Progress struct {
	Index        int    `json:"index,omitempty"`
	Total        int    `json:"total,omitempty"`
	Category     string `json:"category,omitempty"`
	UniqueEmails int    `json:"unique_emails"`
	Message      string `json:"message,omitempty"`
}

func (p Progress) String() string {
	if p.Message != "" {
		return p.Message
	}
	return fmt.Sprintf("Scraping (%d/%d) | Category: %s | Unique Emails Found: %d",
		p.Index, p.Total, p.Category, p.UniqueEmails)
}

type ProgressSink interface {
	Report(p Progress)
}

type ProgressFunc func(p Progress)

func (f ProgressFunc) Report(p Progress) {
	f(p)
}

var DiscardProgress ProgressSink = ProgressFunc(func(Progress) {})

// Column schemas per pipeline.
var (
	TextColumns     = []string{"Email", "Title", "Date"}
	DocumentColumns = []string{"Date", "Email"}
	FeedColumns     = []string{"Title", "Published Date", "Link", "Email"}
)
