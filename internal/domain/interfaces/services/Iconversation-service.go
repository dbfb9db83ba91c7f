package Iservices

import (
	"context"

	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
)

// IConversationService drives the whole conversation/report lifecycle: turn
// dispatch, attachment staging and flushing, report confirmation and artifact
// lookup.
type IConversationService interface {
	Start() dto.ConversationView
	Snapshot(conversationID string) (dto.ConversationView, error)
	Stage(conversationID string, files []entities.PendingAttachment) ([]string, error)
	Unstage(conversationID string, index int) ([]string, error)
	StagedNames(conversationID string) ([]string, error)
	Send(ctx context.Context, conversationID, text string) (dto.ConversationView, error)
	Confirm(ctx context.Context, conversationID string, turnID int64, confirmed bool) (dto.ConversationView, error)
	Artifact(artifactID string) (entities.Artifact, error)
	Release(conversationID string) error
}
