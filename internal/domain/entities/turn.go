package entities

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type TurnKind string

const (
	TurnPlain       TurnKind = "plain"
	TurnReportDraft TurnKind = "report-draft"
	TurnError       TurnKind = "error"
)

// PDFArtifact points at a decoded document held by the artifact store. Only
// the handle travels on the transcript; the bytes live in the store until the
// handle is released.
type PDFArtifact struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Artifact is a decoded PDF document ready for preview or download. ID is the
// handle PDFArtifact entries refer to.
type Artifact struct {
	ID       string
	Filename string
	Data     []byte
}

// Turn is one message unit of a conversation. Report-draft and error kinds are
// bot-only; Attachments is user-only; Confirmed is meaningful only on
// report-draft turns and flips true at most once.
type Turn struct {
	ID           int64         `json:"id"`
	Sender       Sender        `json:"sender"`
	Kind         TurnKind      `json:"kind"`
	Text         string        `json:"text"`
	Timestamp    time.Time     `json:"timestamp"`
	Confirmed    bool          `json:"confirmed,omitempty"`
	Attachments  []string      `json:"attachments,omitempty"`
	PDFArtifacts []PDFArtifact `json:"pdf_artifacts,omitempty"`
}

// IsOpenReport reports whether the turn is a report draft still awaiting a
// confirmation decision.
func (t Turn) IsOpenReport() bool {
	return t.Kind == TurnReportDraft && !t.Confirmed
}
