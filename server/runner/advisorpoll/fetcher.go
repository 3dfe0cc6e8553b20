package advisorpoll

import (
	"context"

	"github.com/campushq/advisor/plugin/chatrelay"
	"github.com/campushq/advisor/server/service/advisor"
)

// ChatFetcher adapts the chat platform client to the Fetcher interface.
type ChatFetcher struct {
	client *chatrelay.Client
}

// NewChatFetcher wraps a chat platform client.
func NewChatFetcher(client *chatrelay.Client) *ChatFetcher {
	return &ChatFetcher{client: client}
}

var _ Fetcher = (*ChatFetcher)(nil)

func (f *ChatFetcher) FetchNewMessages(ctx context.Context) ([]advisor.InboundMessage, error) {
	messages, err := f.client.FetchNewMessages(ctx)
	if err != nil {
		return nil, err
	}
	inbound := make([]advisor.InboundMessage, len(messages))
	for i, m := range messages {
		inbound[i] = advisor.InboundMessage{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Text:        m.Text,
			Bot:         m.Bot,
			ThreadID:    m.ThreadID,
			MessageID:   m.MessageID,
		}
	}
	return inbound, nil
}
