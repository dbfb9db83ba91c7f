package entities

import (
	"sync"
	"time"
)

// PendingAttachment is a file staged by the user but not yet uploaded. It
// exists only between staging and the next send attempt; the bytes are not
// retained once the upload succeeds.
type PendingAttachment struct {
	Filename string
	Data     []byte
}

// Conversation holds all state for one ephemeral session: the transcript, the
// staged attachments, the in-flight dispatch flag and the last bot reply text
// kept for the post-confirmation follow-up call.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	Transcript *Transcript

	mu        sync.Mutex
	pending   []PendingAttachment
	busy      bool
	lastReply string
	artifacts []string
}

func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:         id,
		CreatedAt:  time.Now(),
		Transcript: NewTranscript(),
	}
}

// BeginDispatch claims the conversation for one dispatch. It reports false
// when another dispatch is already in flight; callers must not proceed then.
func (c *Conversation) BeginDispatch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

func (c *Conversation) EndDispatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Stage appends files to the pending set in selection order. Duplicate names
// are allowed.
func (c *Conversation) Stage(files ...PendingAttachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, files...)
}

// Unstage removes exactly the file at the given position and reports whether
// the index was valid.
func (c *Conversation) Unstage(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.pending) {
		return false
	}
	c.pending = append(c.pending[:index], c.pending[index+1:]...)
	return true
}

// Pending returns a copy of the staged attachments.
func (c *Conversation) Pending() []PendingAttachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingAttachment, len(c.pending))
	copy(out, c.pending)
	return out
}

// PendingNames returns the staged file names in order.
func (c *Conversation) PendingNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.pending))
	for i, f := range c.pending {
		names[i] = f.Filename
	}
	return names
}

func (c *Conversation) ClearPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

func (c *Conversation) SetLastReply(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastReply = text
}

func (c *Conversation) LastReply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReply
}

// TrackArtifacts records artifact handles owned by this conversation so they
// can be released together with it.
func (c *Conversation) TrackArtifacts(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts = append(c.artifacts, ids...)
}

func (c *Conversation) ArtifactIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.artifacts))
	copy(out, c.artifacts)
	return out
}
