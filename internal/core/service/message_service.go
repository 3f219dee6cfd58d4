package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/identity"
)

// MessageStore persists the team communication collection.
type MessageStore interface {
	LoadMessages(ctx context.Context) ([]domain.Message, error)
	SaveMessages(ctx context.Context, messages []domain.Message) error
}

// MessageService posts and lists team messages.
type MessageService struct {
	store  MessageStore
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewMessageService(store MessageStore, logger zerolog.Logger) *MessageService {
	return &MessageService{
		store:  store,
		logger: logger.With().Str("component", "message_service").Logger(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Send appends a message from sender. An empty recipient means everyone.
func (s *MessageService) Send(ctx context.Context, sender, to, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: message required", domain.ErrValidation)
	}
	to = strings.TrimSpace(to)
	if to == "" {
		to = domain.Broadcast
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	messages, err := s.store.LoadMessages(ctx)
	if err != nil {
		return domain.Message{}, err
	}

	ids := make([]int, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	msg := domain.Message{
		ID:        identity.NextInt(ids),
		Timestamp: s.now(),
		User:      sender,
		To:        to,
		Message:   text,
	}
	if err := s.store.SaveMessages(ctx, append(messages, msg)); err != nil {
		return domain.Message{}, err
	}

	s.logger.Info().Int("msg_id", msg.ID).Str("from", sender).Str("to", to).Msg("message sent")
	return msg, nil
}

// Recent returns up to limit messages, newest first.
func (s *MessageService) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	messages, err := s.store.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp.After(messages[j].Timestamp) })
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}
