package dto

import "time"

// Browser-facing API shapes.

type ConversationCreatedResponse struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

// ConfirmRequest carries the report decision. The pointer distinguishes an
// explicit false from a missing field.
type ConfirmRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

type ArtifactView struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type TurnView struct {
	ID           int64          `json:"id"`
	Sender       string         `json:"sender"`
	Kind         string         `json:"kind"`
	Text         string         `json:"text"`
	Timestamp    time.Time      `json:"timestamp"`
	Confirmed    bool           `json:"confirmed,omitempty"`
	Attachments  []string       `json:"attachments,omitempty"`
	PDFArtifacts []ArtifactView `json:"pdf_artifacts,omitempty"`
}

type ConversationView struct {
	ConversationID string     `json:"conversation_id"`
	Busy           bool       `json:"busy"`
	PendingFiles   []string   `json:"pending_files"`
	Turns          []TurnView `json:"turns"`
}

type StagedAttachmentsResponse struct {
	Files []string `json:"files"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
