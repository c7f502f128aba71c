package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/lysyi3m/mail-comb/app/harvest"
)

const historyPageSize = 100

// Credentials identify an authorized user session. Session is a Telethon
// string session.
type Credentials struct {
	APIID   int
	APIHash string
	Session string
}

func (c Credentials) IsSet() bool {
	return c.APIID != 0 && c.APIHash != "" && c.Session != ""
}

// MTProtoClient reads channels through an authorized user session and can
// download document attachments.
type MTProtoClient struct {
	client *telegram.Client

	mu        sync.Mutex
	peers     map[string]tg.InputPeerClass
	documents map[int64]*tg.InputDocumentFileLocation

	cancel context.CancelFunc
	done   chan error
}

var _ Client = (*MTProtoClient)(nil)

func NewMTProtoClient(creds Credentials) (*MTProtoClient, error) {
	if !creds.IsSet() {
		return nil, fmt.Errorf("API id, API hash and session are required")
	}

	data, err := session.TelethonSession(creds.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	storage := new(session.StorageMemory)
	loader := session.Loader{Storage: storage}
	if err := loader.Save(context.Background(), data); err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	client := telegram.NewClient(creds.APIID, creds.APIHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	return &MTProtoClient{
		client:    client,
		peers:     make(map[string]tg.InputPeerClass),
		documents: make(map[int64]*tg.InputDocumentFileLocation),
	}, nil
}

// Connect starts the client loop and returns once the connection is ready.
// The loop runs until Disconnect.
func (c *MTProtoClient) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- c.client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ready:
		c.cancel = cancel
		c.done = done
		return nil
	case err := <-done:
		cancel()
		return fmt.Errorf("failed to connect: %w", err)
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (c *MTProtoClient) IsAuthorized(ctx context.Context) (bool, error) {
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return status.Authorized, nil
}

func (c *MTProtoClient) Resolve(ctx context.Context, name string) (Peer, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return Peer{}, fmt.Errorf("channel name is empty")
	}

	var resolved tg.ContactsResolvedPeer
	if err := c.client.Invoke(ctx, &tg.ContactsResolveUsernameRequest{Username: name}, &resolved); err != nil {
		return Peer{}, mapError(err)
	}

	peer, title, err := channelPeer(&resolved)
	if err != nil {
		return Peer{}, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	c.mu.Lock()
	c.peers[name] = peer
	c.mu.Unlock()

	return Peer{Name: name, Title: title}, nil
}

func (c *MTProtoClient) Messages(ctx context.Context, peer Peer) Iterator {
	c.mu.Lock()
	input := c.peers[peer.Name]
	c.mu.Unlock()

	return &historyIterator{client: c, peer: input}
}

func (c *MTProtoClient) DownloadAttachment(ctx context.Context, msg Message) ([]byte, error) {
	c.mu.Lock()
	location, ok := c.documents[msg.ID]
	c.mu.Unlock()
	if !ok {
		return nil, ErrAttachmentUnavailable
	}

	var buf bytes.Buffer
	if _, err := downloader.NewDownloader().Download(c.client.API(), location).Stream(ctx, &buf); err != nil {
		return nil, mapError(err)
	}
	return buf.Bytes(), nil
}

func (c *MTProtoClient) Disconnect() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	err := <-c.done
	c.cancel = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type historyIterator struct {
	client  *MTProtoClient
	peer    tg.InputPeerClass
	pending []Message
	offset  int
	done    bool
}

func (it *historyIterator) Next(ctx context.Context) (Message, error) {
	if it.peer == nil {
		return Message{}, fmt.Errorf("channel was not resolved")
	}

	for len(it.pending) == 0 {
		if it.done {
			return Message{}, io.EOF
		}

		res, err := it.client.client.API().MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     it.peer,
			OffsetID: it.offset,
			Limit:    historyPageSize,
		})
		if err != nil {
			return Message{}, mapError(err)
		}

		modified, ok := res.AsModified()
		if !ok || len(modified.GetMessages()) == 0 {
			it.done = true
			continue
		}

		raw := modified.GetMessages()
		for _, m := range raw {
			msg, ok := m.(*tg.Message)
			if !ok {
				continue
			}
			converted, location := convertMessage(msg)
			if location != nil {
				it.client.mu.Lock()
				it.client.documents[converted.ID] = location
				it.client.mu.Unlock()
			}
			it.pending = append(it.pending, converted)
		}

		last := raw[len(raw)-1].GetID()
		if it.offset != 0 && last >= it.offset {
			it.done = true
		}
		it.offset = last
	}

	msg := it.pending[0]
	it.pending = it.pending[1:]
	return msg, nil
}

func channelPeer(resolved *tg.ContactsResolvedPeer) (tg.InputPeerClass, string, error) {
	target, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		return nil, "", fmt.Errorf("peer is not a channel")
	}

	for _, chat := range resolved.Chats {
		ch, ok := chat.(*tg.Channel)
		if ok && ch.ID == target.ChannelID {
			return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}, ch.Title, nil
		}
	}
	return nil, "", fmt.Errorf("channel %d missing from response", target.ChannelID)
}

// convertMessage maps a history message and, when it carries a document,
// the location to download it from.
func convertMessage(m *tg.Message) (Message, *tg.InputDocumentFileLocation) {
	msg := Message{
		ID:   int64(m.ID),
		Date: time.Unix(int64(m.Date), 0).UTC(),
		Text: m.Message,
	}

	media, ok := m.GetMedia()
	if !ok {
		return msg, nil
	}
	docMedia, ok := media.(*tg.MessageMediaDocument)
	if !ok {
		return msg, nil
	}
	docClass, ok := docMedia.GetDocument()
	if !ok {
		return msg, nil
	}
	doc, ok := docClass.(*tg.Document)
	if !ok {
		return msg, nil
	}

	fileName := ""
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok {
			fileName = fn.FileName
			break
		}
	}

	msg.Attachment = &Attachment{
		FileName: fileName,
		Size:     doc.Size,
		Ref:      strconv.FormatInt(doc.ID, 10),
	}
	return msg, &tg.InputDocumentFileLocation{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
	}
}

// mapError turns FLOOD_WAIT into a rate-limit signal.
func mapError(err error) error {
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return &harvest.RateLimitError{Wait: wait}
	}
	return err
}
