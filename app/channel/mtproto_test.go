package channel

import (
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/lysyi3m/mail-comb/app/harvest"
)

func TestCredentials_IsSet(t *testing.T) {
	tests := []struct {
		name     string
		creds    Credentials
		expected bool
	}{
		{"complete", Credentials{APIID: 1, APIHash: "hash", Session: "1abc"}, true},
		{"missing id", Credentials{APIHash: "hash", Session: "1abc"}, false},
		{"missing hash", Credentials{APIID: 1, Session: "1abc"}, false},
		{"missing session", Credentials{APIID: 1, APIHash: "hash"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.IsSet(); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewMTProtoClient_RejectsBadCredentials(t *testing.T) {
	if _, err := NewMTProtoClient(Credentials{}); err == nil {
		t.Error("Expected error for empty credentials")
	}
	if _, err := NewMTProtoClient(Credentials{APIID: 1, APIHash: "hash", Session: "not-a-session"}); err == nil {
		t.Error("Expected error for undecodable session")
	}
}

func TestConvertMessage_Text(t *testing.T) {
	msg, location := convertMessage(&tg.Message{ID: 7, Date: 1704873600, Message: "Hiring hr@x.com"})

	if location != nil || msg.Attachment != nil {
		t.Error("Expected no attachment for text message")
	}
	if msg.ID != 7 || msg.Text != "Hiring hr@x.com" {
		t.Errorf("Unexpected message: %+v", msg)
	}
	if !msg.Date.Equal(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected 2024-01-10T08:00:00Z, got %v", msg.Date)
	}
}

func TestConvertMessage_Document(t *testing.T) {
	media := &tg.MessageMediaDocument{}
	media.SetDocument(&tg.Document{
		ID:            42,
		AccessHash:    99,
		FileReference: []byte{1, 2},
		Size:          2048,
		Attributes: []tg.DocumentAttributeClass{
			&tg.DocumentAttributeFilename{FileName: "Classifieds.PDF"},
		},
	})
	raw := &tg.Message{ID: 8, Date: 1704873600}
	raw.SetMedia(media)

	msg, location := convertMessage(raw)

	if msg.Attachment == nil || msg.Attachment.FileName != "Classifieds.PDF" || msg.Attachment.Size != 2048 {
		t.Fatalf("Unexpected attachment: %+v", msg.Attachment)
	}
	if location == nil || location.ID != 42 || location.AccessHash != 99 {
		t.Errorf("Unexpected download location: %+v", location)
	}
}

func TestChannelPeer(t *testing.T) {
	resolved := &tg.ContactsResolvedPeer{
		Peer: &tg.PeerChannel{ChannelID: 10},
		Chats: []tg.ChatClass{
			&tg.Channel{ID: 9, AccessHash: 1, Title: "Other"},
			&tg.Channel{ID: 10, AccessHash: 2, Title: "Qatar Jobs"},
		},
	}

	peer, title, err := channelPeer(resolved)
	if err != nil {
		t.Fatal(err)
	}
	if title != "Qatar Jobs" {
		t.Errorf("Expected title 'Qatar Jobs', got '%s'", title)
	}
	input, ok := peer.(*tg.InputPeerChannel)
	if !ok || input.ChannelID != 10 || input.AccessHash != 2 {
		t.Errorf("Unexpected input peer: %+v", peer)
	}

	if _, _, err := channelPeer(&tg.ContactsResolvedPeer{Peer: &tg.PeerUser{UserID: 1}}); err == nil {
		t.Error("Expected error for user peer")
	}
}

func TestMapError_FloodWait(t *testing.T) {
	err := mapError(tgerr.New(420, "FLOOD_WAIT_7"))

	var rateLimit *harvest.RateLimitError
	if !errors.As(err, &rateLimit) {
		t.Fatalf("Expected RateLimitError, got %v", err)
	}
	if rateLimit.Wait != 7*time.Second {
		t.Errorf("Expected 7s wait, got %v", rateLimit.Wait)
	}

	other := errors.New("boom")
	if mapError(other) != other {
		t.Error("Expected other errors to pass through")
	}
}
