package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"dispute-assistant/internal/domain/apperrors"
	"dispute-assistant/internal/domain/dto"
	"dispute-assistant/internal/domain/entities"
	Iservices "dispute-assistant/internal/domain/interfaces/services"
	"dispute-assistant/internal/infra/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// maxUploadBytes bounds one staging request, not the whole pending set.
const maxUploadBytes = 32 << 20

type ConversationHandlers struct {
	Logger              *logger.Logger
	ConversationService Iservices.IConversationService
	Validate            *validator.Validate
}

func NewConversationHandlers(log *logger.Logger, conversationService Iservices.IConversationService) *ConversationHandlers {
	return &ConversationHandlers{
		Logger:              log,
		ConversationService: conversationService,
		Validate:            validator.New(),
	}
}

// CreateConversation starts a new conversation seeded with the assistant
// greeting and returns its id.
func (ch *ConversationHandlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	view := ch.ConversationService.Start()
	writeJSON(w, http.StatusCreated, dto.ConversationCreatedResponse{ConversationID: view.ConversationID})
}

// GetConversation returns the transcript snapshot for one conversation.
func (ch *ConversationHandlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	view, err := ch.ConversationService.Snapshot(conversationID)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SendMessage dispatches one user turn, flushing staged attachments first.
func (ch *ConversationHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	var request dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	view, err := ch.ConversationService.Send(r.Context(), conversationID, request.Text)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// StageAttachments stages the uploaded files on the conversation. The file
// bytes stay in memory until the next send flushes them to the backend.
func (ch *ConversationHandlers) StageAttachments(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "No file parts in request")
		return
	}

	files := make([]entities.PendingAttachment, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file %s", header.Filename))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file %s", header.Filename))
			return
		}
		files = append(files, entities.PendingAttachment{Filename: header.Filename, Data: data})
	}

	names, err := ch.ConversationService.Stage(conversationID, files)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StagedAttachmentsResponse{Files: names})
}

// ListAttachments returns the staged file names in selection order.
func (ch *ConversationHandlers) ListAttachments(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	names, err := ch.ConversationService.StagedNames(conversationID)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StagedAttachmentsResponse{Files: names})
}

// RemoveAttachment unstages exactly the file at the given position.
func (ch *ConversationHandlers) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attachment index")
		return
	}

	names, err := ch.ConversationService.Unstage(conversationID, index)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StagedAttachmentsResponse{Files: names})
}

// ConfirmTurn records the report decision and runs the confirmation flow.
func (ch *ConversationHandlers) ConfirmTurn(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	turnID, err := strconv.ParseInt(vars["turnId"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid turn id")
		return
	}

	var request dto.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if err := ch.Validate.Struct(request); err != nil {
		writeError(w, http.StatusBadRequest, "Field 'confirmed' is required")
		return
	}

	view, err := ch.ConversationService.Confirm(r.Context(), conversationID, turnID, *request.Confirmed)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DownloadArtifact streams a decoded PDF under its original filename.
func (ch *ConversationHandlers) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	artifactID := mux.Vars(r)["id"]

	artifact, err := ch.ConversationService.Artifact(artifactID)
	if err != nil {
		ch.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// DeleteConversation releases the conversation and its artifact handles.
func (ch *ConversationHandlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]

	if err := ch.ConversationService.Release(conversationID); err != nil {
		ch.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ch *ConversationHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrConversationNotFound),
		errors.Is(err, apperrors.ErrTurnNotFound),
		errors.Is(err, apperrors.ErrArtifactNotFound),
		errors.Is(err, apperrors.ErrAttachmentIndex):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrBusy),
		errors.Is(err, apperrors.ErrAlreadyConfirmed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrEmptyMessage),
		errors.Is(err, apperrors.ErrNotAReport):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		ch.Logger.Error(fmt.Sprintf("Unhandled service error: %v", err))
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message})
}
