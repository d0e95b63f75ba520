// Package roster fetches the initial conversation list over plain
// request/response HTTP. It runs once, before the synchronization engine
// starts; the live WebSocket keeps the list current afterwards.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openforum/chatsync/internal/domain"
)

// Loader fetches conversation summaries for a user.
type Loader struct {
	baseURL string
	client  *http.Client
}

// NewLoader creates a Loader against the given API base URL, e.g.
// "https://chat.example.com".
func NewLoader(baseURL string, timeout time.Duration) *Loader {
	if timeout == 0 {
		timeout = domain.RosterTimeout
	}
	return &Loader{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// conversationRecord mirrors the server's conversation-list response shape.
type conversationRecord struct {
	ChatUUID      string           `json:"chat_uuid"`
	CounterpartID string           `json:"counterpart_id"`
	UnreadCount   int              `json:"unread_count"`
	Messages      []domain.Message `json:"messages"`
}

// Load fetches the conversation list for userID and converts it into
// domain conversations suitable for seeding the store.
func (l *Loader) Load(ctx context.Context, userID string) ([]domain.Conversation, error) {
	url := fmt.Sprintf("%s/api/chats/%s/", l.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build roster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch roster: unexpected status %d", resp.StatusCode)
	}

	var records []conversationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}

	convs := make([]domain.Conversation, 0, len(records))
	for _, rec := range records {
		convs = append(convs, domain.Conversation{
			CounterpartID: rec.CounterpartID,
			ChatUUID:      rec.ChatUUID,
			Messages:      rec.Messages,
			UnreadCount:   rec.UnreadCount,
		})
	}
	return convs, nil
}
