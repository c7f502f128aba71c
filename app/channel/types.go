package channel

import (
	"context"
	"errors"
	"time"
)

var ErrAttachmentUnavailable = errors.New("attachment cannot be downloaded")

type Mode string

const (
	ModeText     Mode = "text"
	ModeDocument Mode = "document"
)

const (
	DefaultDocumentExt  = ".pdf"
	DefaultSectionStart = "SITUATION VACANT"
	DefaultSectionEnd   = "SITUATION WANTED"
)

type Attachment struct {
	FileName string
	Size     int64
	Ref      string
}

// Message is one channel post. Date is the instant the post was published.
type Message struct {
	ID         int64
	Date       time.Time
	Text       string
	Attachment *Attachment
}

type Peer struct {
	Name  string
	Title string
}

// Iterator yields messages newest first and returns io.EOF when the stream
// is exhausted. A *harvest.RateLimitError means the same call may be repeated
// after the signaled wait.
type Iterator interface {
	Next(ctx context.Context) (Message, error)
}

type Client interface {
	Connect(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)
	Resolve(ctx context.Context, name string) (Peer, error)
	Messages(ctx context.Context, peer Peer) Iterator
	DownloadAttachment(ctx context.Context, msg Message) ([]byte, error)
	Disconnect() error
}

type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

type Settings struct {
	Channel      string
	Mode         Mode
	DocumentExt  string
	SectionStart string
	SectionEnd   string
	Extractor    TextExtractor
}
