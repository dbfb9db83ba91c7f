package entities

import (
	"sync"
	"time"
)

// Transcript is the append-only ordered record of one conversation. Turn ids
// are assigned here and nowhere else, so they stay strictly increasing no
// matter how appends interleave. The only permitted mutation besides Append is
// the one-way Confirmed flip.
type Transcript struct {
	mu     sync.Mutex
	nextID int64
	turns  []Turn
}

func NewTranscript() *Transcript {
	return &Transcript{nextID: 1}
}

// Append stores the turn at the end of the sequence, filling in its id and,
// when unset, its timestamp. The stored turn is returned.
func (tr *Transcript) Append(turn Turn) Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	turn.ID = tr.nextID
	tr.nextID++
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	tr.turns = append(tr.turns, turn)
	return turn
}

// MarkConfirmed flips Confirmed on the report-draft turn with the given id and
// reports whether the flag actually flipped. Unknown ids, non-report turns and
// already-confirmed turns leave the transcript untouched.
func (tr *Transcript) MarkConfirmed(id int64) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i := range tr.turns {
		if tr.turns[i].ID != id {
			continue
		}
		if tr.turns[i].Kind != TurnReportDraft || tr.turns[i].Confirmed {
			return false
		}
		tr.turns[i].Confirmed = true
		return true
	}
	return false
}

// Find returns a copy of the turn with the given id.
func (tr *Transcript) Find(id int64) (Turn, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for _, turn := range tr.turns {
		if turn.ID == id {
			return turn, true
		}
	}
	return Turn{}, false
}

// Snapshot returns a copy of the ordered turn sequence.
func (tr *Transcript) Snapshot() []Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]Turn, len(tr.turns))
	copy(out, tr.turns)
	return out
}

func (tr *Transcript) Len() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.turns)
}
