package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"dispute-assistant/internal/config"
	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
	"dispute-assistant/internal/infra/artifacts"
	"dispute-assistant/internal/infra/logger"
	"dispute-assistant/internal/infra/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	chatResponse    dto.ChatResponse
	chatErr         error
	uploadErr       error
	confirmResponse dto.ConfirmReportResponse
	confirmErr      error
	afterResponse   dto.AfterReportResponse
	afterErr        error

	chatMessages     []string
	uploadBatches    [][]entities.PendingAttachment
	confirmDecisions []bool
	afterMessages    []string
}

func (s *stubProvider) Chat(_ context.Context, message string) (dto.ChatResponse, error) {
	s.chatMessages = append(s.chatMessages, message)
	return s.chatResponse, s.chatErr
}

func (s *stubProvider) UploadFiles(_ context.Context, files []entities.PendingAttachment) error {
	s.uploadBatches = append(s.uploadBatches, files)
	return s.uploadErr
}

func (s *stubProvider) ConfirmReport(_ context.Context, confirmed bool) (dto.ConfirmReportResponse, error) {
	s.confirmDecisions = append(s.confirmDecisions, confirmed)
	return s.confirmResponse, s.confirmErr
}

func (s *stubProvider) AfterReport(_ context.Context, message string) (dto.AfterReportResponse, error) {
	s.afterMessages = append(s.afterMessages, message)
	return s.afterResponse, s.afterErr
}

func newTestService(stub *stubProvider, policy config.FollowUpPolicy) *ConversationService {
	log := logger.NewLogger("error", false)
	artifactStore := artifacts.NewStore(time.Minute, log)
	conversationStore := repository.NewCacheStore(time.Minute, func(id string, conversation *entities.Conversation) {
		artifactStore.Release(conversation.ArtifactIDs()...)
	})
	return NewConversationService(log, stub, conversationStore, artifactStore, policy)
}

func lastTurns(view dto.ConversationView, n int) []dto.TurnView {
	return view.Turns[len(view.Turns)-n:]
}

func TestStartSeedsGreeting(t *testing.T) {
	service := newTestService(&stubProvider{}, config.FollowUpOnReply)

	view := service.Start()

	require.Len(t, view.Turns, 1)
	assert.Equal(t, "bot", view.Turns[0].Sender)
	assert.Equal(t, GreetingText, view.Turns[0].Text)
	assert.False(t, view.Busy)
}

// Scenario A: plain text send appends exactly one user turn and one bot turn,
// and the conversation ends up not busy.
func TestSendPlainText(t *testing.T) {
	stub := &stubProvider{chatResponse: dto.ChatResponse{Reply: "When did this happen?"}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	view, err := service.Send(context.Background(), conv.ConversationID, "I was fired without notice")
	require.NoError(t, err)

	require.Len(t, view.Turns, 3)
	turns := lastTurns(view, 2)
	assert.Equal(t, "user", turns[0].Sender)
	assert.Equal(t, "I was fired without notice", turns[0].Text)
	assert.Empty(t, turns[0].Attachments)
	assert.Equal(t, "bot", turns[1].Sender)
	assert.Equal(t, "When did this happen?", turns[1].Text)
	assert.Equal(t, "plain", turns[1].Kind)

	assert.Equal(t, []string{"I was fired without notice"}, stub.chatMessages)
	assert.False(t, view.Busy)
}

// Scenario B: staged files with empty text upload first, compose the user
// turn text from the file names, and leave the pending set empty.
func TestSendWithAttachmentsOnly(t *testing.T) {
	stub := &stubProvider{chatResponse: dto.ChatResponse{Reply: "Got the documents."}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	_, err := service.Stage(conv.ConversationID, []entities.PendingAttachment{
		{Filename: "fileA.pdf", Data: []byte("a")},
		{Filename: "fileB.docx", Data: []byte("b")},
	})
	require.NoError(t, err)

	view, err := service.Send(context.Background(), conv.ConversationID, "")
	require.NoError(t, err)

	require.Len(t, stub.uploadBatches, 1)
	assert.Len(t, stub.uploadBatches[0], 2)

	userTurn := lastTurns(view, 2)[0]
	assert.Equal(t, "User added fileA.pdf, fileB.docx", userTurn.Text)
	assert.Equal(t, []string{"fileA.pdf", "fileB.docx"}, userTurn.Attachments)
	assert.Empty(t, view.PendingFiles)

	// The upload completes before the chat call and the chat call carries the
	// composed note.
	assert.Equal(t, []string{"User added fileA.pdf, fileB.docx"}, stub.chatMessages)
}

// Scenario C: a failing chat call appends exactly one error turn with the
// fixed apology text and no error escapes the dispatch.
func TestSendChatFailureDegradesToApologyTurn(t *testing.T) {
	stub := &stubProvider{chatErr: &apperrors.TransportError{Op: "chat", Status: 500}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	view, err := service.Send(context.Background(), conv.ConversationID, "hello")
	require.NoError(t, err)

	require.Len(t, view.Turns, 3)
	errorTurn := lastTurns(view, 1)[0]
	assert.Equal(t, "bot", errorTurn.Sender)
	assert.Equal(t, "error", errorTurn.Kind)
	assert.Equal(t, ApologyText, errorTurn.Text)
	assert.False(t, view.Busy)
}

func TestSendUploadFailureAbortsEntireSend(t *testing.T) {
	stub := &stubProvider{uploadErr: &apperrors.TransportError{Op: "upload", Status: 502}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	service.Stage(conv.ConversationID, []entities.PendingAttachment{{Filename: "a.pdf", Data: []byte("x")}})

	view, err := service.Send(context.Background(), conv.ConversationID, "please attach")
	require.NoError(t, err)

	// No chat call, pending kept, one synthesized error turn.
	assert.Empty(t, stub.chatMessages)
	assert.Equal(t, []string{"a.pdf"}, view.PendingFiles)
	errorTurn := lastTurns(view, 1)[0]
	assert.Equal(t, "error", errorTurn.Kind)
	assert.Equal(t, ApologyText, errorTurn.Text)
	assert.False(t, view.Busy)
}

func TestSendEmptyMessageIsRejectedAtBoundary(t *testing.T) {
	stub := &stubProvider{}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	_, err := service.Send(context.Background(), conv.ConversationID, "   \n ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	assert.Empty(t, stub.chatMessages)
}

func TestSendUnknownConversation(t *testing.T) {
	service := newTestService(&stubProvider{}, config.FollowUpOnReply)

	_, err := service.Send(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestSendDecodesArtifactsAndSkipsMalformedOnes(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	stub := &stubProvider{chatResponse: dto.ChatResponse{
		Reply:    "Here is your report.",
		IsReport: true,
		PDFs: []dto.PDFPayload{
			{Filename: "summary.pdf", PDFBase64: valid},
			{Filename: "broken.pdf", PDFBase64: "***"},
			{Filename: "exhibits.pdf", PDFBase64: valid},
		},
	}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	view, err := service.Send(context.Background(), conv.ConversationID, "summarize my case")
	require.NoError(t, err)

	botTurn := lastTurns(view, 1)[0]
	assert.Equal(t, "report-draft", botTurn.Kind)
	require.Len(t, botTurn.PDFArtifacts, 2)
	assert.Equal(t, "summary.pdf", botTurn.PDFArtifacts[0].Filename)
	assert.Equal(t, "exhibits.pdf", botTurn.PDFArtifacts[1].Filename)

	// Both surviving handles resolve to bytes.
	for _, artifactView := range botTurn.PDFArtifacts {
		artifact, err := service.Artifact(artifactView.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), artifact.Data)
	}
}

func startWithReportDraft(t *testing.T, stub *stubProvider, service *ConversationService) (string, int64) {
	t.Helper()
	stub.chatResponse = dto.ChatResponse{Reply: "Draft report: you may be owed notice pay.", IsReport: true}

	conv := service.Start()
	view, err := service.Send(context.Background(), conv.ConversationID, "I think I'm done")
	require.NoError(t, err)

	draft := lastTurns(view, 1)[0]
	require.Equal(t, "report-draft", draft.Kind)
	require.False(t, draft.Confirmed)
	return conv.ConversationID, draft.ID
}

// Scenario D: confirming with true flips the flag immediately and appends the
// confirm reply plus the follow-up reply.
func TestConfirmTrueRunsFollowUp(t *testing.T) {
	stub := &stubProvider{
		confirmResponse: dto.ConfirmReportResponse{Reply: "Report recorded."},
		afterResponse:   dto.AfterReportResponse{Reply: "Next, contact the Employment Standards Branch."},
	}
	service := newTestService(stub, config.FollowUpOnReply)
	convID, draftID := startWithReportDraft(t, stub, service)

	view, err := service.Confirm(context.Background(), convID, draftID, true)
	require.NoError(t, err)

	// Transcript: greeting, user, draft, confirm reply, follow-up reply.
	require.Len(t, view.Turns, 5)
	assert.True(t, view.Turns[2].Confirmed)
	assert.Equal(t, "Report recorded.", view.Turns[3].Text)
	assert.Equal(t, "Next, contact the Employment Standards Branch.", view.Turns[4].Text)

	assert.Equal(t, []bool{true}, stub.confirmDecisions)
	// The follow-up runs after the confirm reply and carries it as context.
	assert.Equal(t, []string{"Report recorded."}, stub.afterMessages)
	assert.False(t, view.Busy)
}

// Scenario E: confirming with false appends exactly one reply turn and never
// calls the follow-up.
func TestConfirmFalseSkipsFollowUp(t *testing.T) {
	stub := &stubProvider{
		confirmResponse: dto.ConfirmReportResponse{Reply: "Okay, tell me what to change."},
	}
	service := newTestService(stub, config.FollowUpOnReply)
	convID, draftID := startWithReportDraft(t, stub, service)

	view, err := service.Confirm(context.Background(), convID, draftID, false)
	require.NoError(t, err)

	require.Len(t, view.Turns, 4)
	assert.True(t, view.Turns[2].Confirmed)
	assert.Equal(t, "Okay, tell me what to change.", view.Turns[3].Text)
	assert.Empty(t, stub.afterMessages)
	assert.False(t, view.Busy)
}

func TestConfirmIsCallableAtMostOncePerTurn(t *testing.T) {
	stub := &stubProvider{
		confirmResponse: dto.ConfirmReportResponse{Reply: "Recorded."},
		afterResponse:   dto.AfterReportResponse{Reply: "Next steps."},
	}
	service := newTestService(stub, config.FollowUpOnReply)
	convID, draftID := startWithReportDraft(t, stub, service)

	first, err := service.Confirm(context.Background(), convID, draftID, true)
	require.NoError(t, err)

	second, err := service.Confirm(context.Background(), convID, draftID, true)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyConfirmed)

	// The transcript did not change and the flag stayed true.
	assert.Len(t, second.Turns, len(first.Turns))
	assert.True(t, second.Turns[2].Confirmed)
	assert.Len(t, stub.confirmDecisions, 1)
}

func TestConfirmRejectsNonReportTurns(t *testing.T) {
	stub := &stubProvider{chatResponse: dto.ChatResponse{Reply: "just chatting"}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	view, err := service.Send(context.Background(), conv.ConversationID, "hello")
	require.NoError(t, err)
	plainTurn := lastTurns(view, 1)[0]

	_, err = service.Confirm(context.Background(), conv.ConversationID, plainTurn.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrNotAReport)

	_, err = service.Confirm(context.Background(), conv.ConversationID, 999, true)
	assert.ErrorIs(t, err, apperrors.ErrTurnNotFound)
}

func TestConfirmFailureSkipsFollowUpUnderOnReplyPolicy(t *testing.T) {
	stub := &stubProvider{
		confirmErr:    &apperrors.TransportError{Op: "confirm-report", Status: 500},
		afterResponse: dto.AfterReportResponse{Reply: "unused"},
	}
	service := newTestService(stub, config.FollowUpOnReply)
	convID, draftID := startWithReportDraft(t, stub, service)

	view, err := service.Confirm(context.Background(), convID, draftID, true)
	require.NoError(t, err)

	// Apology turn appended, follow-up never attempted, flag still flipped.
	apology := lastTurns(view, 1)[0]
	assert.Equal(t, "error", apology.Kind)
	assert.Equal(t, ApologyText, apology.Text)
	assert.True(t, view.Turns[2].Confirmed)
	assert.Empty(t, stub.afterMessages)
	assert.False(t, view.Busy)
}

func TestConfirmFailureStillRunsFollowUpUnderAlwaysPolicy(t *testing.T) {
	stub := &stubProvider{
		confirmErr:    &apperrors.TransportError{Op: "confirm-report", Status: 500},
		afterResponse: dto.AfterReportResponse{Reply: "Proceeding anyway."},
	}
	service := newTestService(stub, config.FollowUpAlways)
	convID, draftID := startWithReportDraft(t, stub, service)

	view, err := service.Confirm(context.Background(), convID, draftID, true)
	require.NoError(t, err)

	// Context falls back to the last reply before the confirm attempt, which
	// is the report draft text.
	assert.Equal(t, []string{"Draft report: you may be owed notice pay."}, stub.afterMessages)
	assert.Equal(t, "Proceeding anyway.", lastTurns(view, 1)[0].Text)
}

func TestConfirmFollowUpFailureDegradesToApology(t *testing.T) {
	stub := &stubProvider{
		confirmResponse: dto.ConfirmReportResponse{Reply: "Recorded."},
		afterErr:        errors.New("connection reset"),
	}
	service := newTestService(stub, config.FollowUpOnReply)
	convID, draftID := startWithReportDraft(t, stub, service)

	view, err := service.Confirm(context.Background(), convID, draftID, true)
	require.NoError(t, err)

	turns := lastTurns(view, 2)
	assert.Equal(t, "Recorded.", turns[0].Text)
	assert.Equal(t, "error", turns[1].Kind)
	assert.Equal(t, ApologyText, turns[1].Text)
	assert.False(t, view.Busy)
}

func TestReleaseDropsConversationAndArtifacts(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	stub := &stubProvider{chatResponse: dto.ChatResponse{
		Reply:    "Report attached.",
		IsReport: true,
		PDFs:     []dto.PDFPayload{{Filename: "report.pdf", PDFBase64: valid}},
	}}
	service := newTestService(stub, config.FollowUpOnReply)
	conv := service.Start()

	view, err := service.Send(context.Background(), conv.ConversationID, "finish up")
	require.NoError(t, err)
	handle := lastTurns(view, 1)[0].PDFArtifacts[0].ID

	_, err = service.Artifact(handle)
	require.NoError(t, err)

	require.NoError(t, service.Release(conv.ConversationID))

	_, err = service.Snapshot(conv.ConversationID)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	_, err = service.Artifact(handle)
	assert.ErrorIs(t, err, apperrors.ErrArtifactNotFound)
}

func TestUnstageRemovesExactlyOneFile(t *testing.T) {
	service := newTestService(&stubProvider{}, config.FollowUpOnReply)
	conv := service.Start()

	service.Stage(conv.ConversationID, []entities.PendingAttachment{
		{Filename: "a.pdf"}, {Filename: "b.pdf"}, {Filename: "c.pdf"},
	})

	names, err := service.Unstage(conv.ConversationID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, names)

	_, err = service.Unstage(conv.ConversationID, 9)
	assert.ErrorIs(t, err, apperrors.ErrAttachmentIndex)
}
