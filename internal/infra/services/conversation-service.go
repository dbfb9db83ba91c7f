package services

import (
	"context"
	"fmt"
	"strings"

	"dispute-assistant/internal/config"
	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
	"dispute-assistant/internal/infra/artifacts"
	"dispute-assistant/internal/infra/logger"
	"dispute-assistant/internal/infra/provider"
	"dispute-assistant/internal/infra/repository"
	"dispute-assistant/internal/util"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ApologyText is the single user-visible message every backend failure
// degrades to. No error detail reaches the transcript.
const ApologyText = "Sorry, something went wrong on my end. Please try again in a moment."

// GreetingText seeds every new conversation with the assistant's opening turn.
const GreetingText = "Hello! I'm your workplace rights assistant. I'll ask you some questions about your situation so we can put together an accurate report. What brings you here today?"

// ConversationService drives the conversation/report lifecycle: it stages and
// flushes attachments, dispatches user turns to the assistant backend, decodes
// returned PDF artifacts and runs the report confirmation flow.
type ConversationService struct {
	Logger        *logger.Logger
	Provider      provider.IAssistantProvider
	Conversations *repository.CacheStore[*entities.Conversation]
	Artifacts     *artifacts.Store
	FollowUp      config.FollowUpPolicy
}

func NewConversationService(
	log *logger.Logger,
	assistantProvider provider.IAssistantProvider,
	conversations *repository.CacheStore[*entities.Conversation],
	artifactStore *artifacts.Store,
	followUp config.FollowUpPolicy,
) *ConversationService {
	return &ConversationService{
		Logger:        log,
		Provider:      assistantProvider,
		Conversations: conversations,
		Artifacts:     artifactStore,
		FollowUp:      followUp,
	}
}

// Start creates a conversation seeded with the assistant greeting.
func (cs *ConversationService) Start() dto.ConversationView {
	conversation := entities.NewConversation(uuid.NewString())
	conversation.Transcript.Append(entities.Turn{
		Sender: entities.SenderBot,
		Kind:   entities.TurnPlain,
		Text:   GreetingText,
	})
	cs.Conversations.Put(conversation.ID, conversation)

	cs.Logger.Info("Conversation started", logrus.Fields{"conversation_id": conversation.ID})
	return cs.view(conversation)
}

// Snapshot returns the current transcript view and extends the conversation's
// lifetime.
func (cs *ConversationService) Snapshot(conversationID string) (dto.ConversationView, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return dto.ConversationView{}, err
	}
	return cs.view(conversation), nil
}

// Stage adds files to the pending set in selection order and returns the
// staged names.
func (cs *ConversationService) Stage(conversationID string, files []entities.PendingAttachment) ([]string, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return nil, err
	}
	conversation.Stage(files...)
	return conversation.PendingNames(), nil
}

// Unstage removes exactly the staged file at the given position.
func (cs *ConversationService) Unstage(conversationID string, index int) ([]string, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Unstage(index) {
		return nil, apperrors.ErrAttachmentIndex
	}
	return conversation.PendingNames(), nil
}

// StagedNames lists the pending attachment names in order.
func (cs *ConversationService) StagedNames(conversationID string) ([]string, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return nil, err
	}
	return conversation.PendingNames(), nil
}

// Send runs one full dispatch: flush staged attachments, append the user turn,
// exchange it with the backend and append the bot reply. A backend failure
// never escapes as an error; it degrades to an error turn on the transcript.
// Sends race nothing: a second Send while one is in flight fails with ErrBusy.
func (cs *ConversationService) Send(ctx context.Context, conversationID, text string) (dto.ConversationView, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return dto.ConversationView{}, err
	}

	trimmed := strings.TrimSpace(text)
	pending := conversation.Pending()
	if trimmed == "" && len(pending) == 0 {
		return cs.view(conversation), apperrors.ErrEmptyMessage
	}

	if !conversation.BeginDispatch() {
		return cs.view(conversation), apperrors.ErrBusy
	}
	cs.dispatch(ctx, conversation, trimmed, pending)
	// The dispatch must end before the view is built so the caller never sees
	// a settled conversation as busy.
	conversation.EndDispatch()
	return cs.view(conversation), nil
}

// dispatch runs the upload-then-chat exchange for one claimed send.
func (cs *ConversationService) dispatch(ctx context.Context, conversation *entities.Conversation, text string, pending []entities.PendingAttachment) {
	names := make([]string, len(pending))
	for i, file := range pending {
		names[i] = file.Filename
	}

	if len(pending) > 0 {
		if err := cs.Provider.UploadFiles(ctx, pending); err != nil {
			// Upload failure aborts the whole send: nothing is sent to the
			// chat endpoint and the pending set stays staged.
			cs.Logger.Error(fmt.Sprintf("Attachment upload failed: %v", err), logrus.Fields{"conversation_id": conversation.ID})
			cs.appendApology(conversation)
			return
		}
		conversation.ClearPending()
	}

	composed := util.ComposeMessage(text, names)
	conversation.Transcript.Append(entities.Turn{
		Sender:      entities.SenderUser,
		Kind:        entities.TurnPlain,
		Text:        composed,
		Attachments: names,
	})

	response, err := cs.Provider.Chat(ctx, composed)
	if err != nil {
		cs.Logger.Error(fmt.Sprintf("Chat dispatch failed: %v", err), logrus.Fields{"conversation_id": conversation.ID})
		cs.appendApology(conversation)
		return
	}

	cs.appendBotReply(conversation, response)
}

// Confirm runs the report confirmation flow for one report-draft turn. The
// confirmed flag flips before any network call and never reverts; the decision
// is relayed to the backend and, for a positive decision, the follow-up
// exchange runs afterwards according to the configured policy.
func (cs *ConversationService) Confirm(ctx context.Context, conversationID string, turnID int64, confirmed bool) (dto.ConversationView, error) {
	conversation, err := cs.find(conversationID)
	if err != nil {
		return dto.ConversationView{}, err
	}

	turn, ok := conversation.Transcript.Find(turnID)
	if !ok {
		return cs.view(conversation), apperrors.ErrTurnNotFound
	}
	if turn.Kind != entities.TurnReportDraft {
		return cs.view(conversation), apperrors.ErrNotAReport
	}
	if turn.Confirmed {
		return cs.view(conversation), apperrors.ErrAlreadyConfirmed
	}

	if !conversation.BeginDispatch() {
		return cs.view(conversation), apperrors.ErrBusy
	}

	// Optimistic flip: the transcript shows the decision before the backend
	// acknowledges it.
	if !conversation.Transcript.MarkConfirmed(turnID) {
		conversation.EndDispatch()
		return cs.view(conversation), apperrors.ErrAlreadyConfirmed
	}

	cs.Logger.Info("Report decision recorded", logrus.Fields{
		"conversation_id": conversation.ID,
		"turn_id":         turnID,
		"confirmed":       confirmed,
	})

	response, confirmErr := cs.Provider.ConfirmReport(ctx, confirmed)
	if confirmErr != nil {
		cs.Logger.Error(fmt.Sprintf("Confirm-report call failed: %v", confirmErr), logrus.Fields{"conversation_id": conversation.ID})
		cs.appendApology(conversation)
	} else {
		reply := conversation.Transcript.Append(entities.Turn{
			Sender: entities.SenderBot,
			Kind:   entities.TurnPlain,
			Text:   response.Reply,
		})
		conversation.SetLastReply(reply.Text)
	}

	if confirmed && (confirmErr == nil || cs.FollowUp == config.FollowUpAlways) {
		cs.followUp(ctx, conversation)
	}

	// As in Send: settle the dispatch before the view snapshot.
	conversation.EndDispatch()
	return cs.view(conversation), nil
}

// Artifact resolves a PDF handle for preview or download.
func (cs *ConversationService) Artifact(artifactID string) (entities.Artifact, error) {
	return cs.Artifacts.Get(artifactID)
}

// Release drops the conversation; its artifact handles go with it via the
// store's eviction hook.
func (cs *ConversationService) Release(conversationID string) error {
	if _, err := cs.find(conversationID); err != nil {
		return err
	}
	cs.Conversations.Delete(conversationID)
	return nil
}

// followUp runs the dependent after-report exchange, sequentially after the
// confirm reply has been handled.
func (cs *ConversationService) followUp(ctx context.Context, conversation *entities.Conversation) {
	response, err := cs.Provider.AfterReport(ctx, conversation.LastReply())
	if err != nil {
		cs.Logger.Error(fmt.Sprintf("After-report call failed: %v", err), logrus.Fields{"conversation_id": conversation.ID})
		cs.appendApology(conversation)
		return
	}

	reply := conversation.Transcript.Append(entities.Turn{
		Sender: entities.SenderBot,
		Kind:   entities.TurnPlain,
		Text:   response.Reply,
	})
	conversation.SetLastReply(reply.Text)
}

// appendBotReply turns a chat response into a transcript turn, decoding any
// PDF payloads. A malformed payload is logged and skipped; its siblings and
// the reply text still land.
func (cs *ConversationService) appendBotReply(conversation *entities.Conversation, response dto.ChatResponse) {
	kind := entities.TurnPlain
	if response.IsReport {
		kind = entities.TurnReportDraft
	}

	turn := entities.Turn{
		Sender: entities.SenderBot,
		Kind:   kind,
		Text:   response.Reply,
	}

	if len(response.PDFs) > 0 {
		decoded, failures := artifacts.Decode(response.PDFs)
		for _, failure := range failures {
			cs.Logger.Warn(fmt.Sprintf("Skipping malformed PDF payload: %v", failure), logrus.Fields{"conversation_id": conversation.ID})
		}
		cs.Artifacts.Save(decoded)
		for _, artifact := range decoded {
			turn.PDFArtifacts = append(turn.PDFArtifacts, entities.PDFArtifact{
				ID:       artifact.ID,
				Filename: artifact.Filename,
			})
			conversation.TrackArtifacts(artifact.ID)
		}
	}

	conversation.Transcript.Append(turn)
	conversation.SetLastReply(response.Reply)
}

func (cs *ConversationService) appendApology(conversation *entities.Conversation) {
	conversation.Transcript.Append(entities.Turn{
		Sender: entities.SenderBot,
		Kind:   entities.TurnError,
		Text:   ApologyText,
	})
}

func (cs *ConversationService) find(conversationID string) (*entities.Conversation, error) {
	conversation, ok := cs.Conversations.Get(conversationID)
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	// Touch: activity extends the conversation's lifetime.
	cs.Conversations.Put(conversationID, conversation)
	return conversation, nil
}

func (cs *ConversationService) view(conversation *entities.Conversation) dto.ConversationView {
	turns := conversation.Transcript.Snapshot()
	views := make([]dto.TurnView, len(turns))
	for i, turn := range turns {
		view := dto.TurnView{
			ID:          turn.ID,
			Sender:      string(turn.Sender),
			Kind:        string(turn.Kind),
			Text:        turn.Text,
			Timestamp:   turn.Timestamp,
			Confirmed:   turn.Confirmed,
			Attachments: turn.Attachments,
		}
		for _, artifact := range turn.PDFArtifacts {
			view.PDFArtifacts = append(view.PDFArtifacts, dto.ArtifactView{
				ID:       artifact.ID,
				Filename: artifact.Filename,
				URL:      "/api/artifacts/" + artifact.ID,
			})
		}
		views[i] = view
	}

	return dto.ConversationView{
		ConversationID: conversation.ID,
		Busy:           conversation.Busy(),
		PendingFiles:   conversation.PendingNames(),
		Turns:          views,
	}
}
