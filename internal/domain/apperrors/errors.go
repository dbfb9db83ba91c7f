package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage         = errors.New("message text is empty and no attachments are staged")
	ErrBusy                 = errors.New("a dispatch is already in flight for this conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTurnNotFound         = errors.New("turn not found")
	ErrNotAReport           = errors.New("turn is not a report draft")
	ErrAlreadyConfirmed     = errors.New("report decision was already recorded")
	ErrAttachmentIndex      = errors.New("no staged attachment at that position")
	ErrArtifactNotFound     = errors.New("artifact not found or already released")
)

// TransportError covers every failed exchange with the assistant backend,
// unreachable hosts and non-2xx statuses alike. Status is zero when the
// request never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError marks a single malformed PDF payload. Sibling payloads keep
// decoding; the caller records the failure and moves on.
type DecodeError struct {
	Filename string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode pdf %q: %v", e.Filename, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
