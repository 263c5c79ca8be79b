package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/chatter-pad/internal/model"
	"github.com/iliyamo/chatter-pad/internal/room"
)

// RoomStore adapts the MySQL repositories to room.Store.
type RoomStore struct {
	Participants *ParticipantRepo
	Chat         *ChatRepo
}

func NewRoomStore(participants *ParticipantRepo, chat *ChatRepo) *RoomStore {
	return &RoomStore{Participants: participants, Chat: chat}
}

func (s *RoomStore) GetParticipant(ctx context.Context, email string) (model.Participant, error) {
	p, err := s.Participants.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return model.Participant{}, room.ErrUnknownParticipant
	}
	if err != nil {
		return model.Participant{}, fmt.Errorf("get participant %s: %w", email, err)
	}
	return p, nil
}

func (s *RoomStore) UpsertParticipant(ctx context.Context, email string, patch model.ParticipantPatch) error {
	return s.Participants.Upsert(ctx, email, patch)
}

func (s *RoomStore) AppendChatMessage(ctx context.Context, msg model.ChatMessage) error {
	return s.Chat.Append(ctx, msg)
}

func (s *RoomStore) ListChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	return s.Chat.List(ctx, limit)
}

func (s *RoomStore) ListPresentParticipants(ctx context.Context) ([]model.Participant, error) {
	return s.Participants.ListPresent(ctx)
}

func (s *RoomStore) IncrementCurrency(ctx context.Context, emails []string, amount int64) error {
	return s.Participants.IncrementGold(ctx, emails, amount)
}

var (
	_ room.Store      = (*RoomStore)(nil)
	_ room.Scoreboard = (*Leaderboard)(nil)
)
