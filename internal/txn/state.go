package txn

import (
	"fmt"
	"sync"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
)

// State is the lifecycle state of a transaction.
type State string

// Transaction states.
const (
	StatePlanned        State = "planned"
	StateAssetsApplying State = "assets_applying"
	StateRecordUpdated  State = "record_updated"
	StateCommitted      State = "committed"
	StateRolledBack     State = "rolled_back"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}

// Phase names the stage in which a transaction failed.
type Phase string

// Phases reported by PhaseError.
const (
	PhaseValidate Phase = "validate"
	PhasePlan     Phase = "plan"
	PhaseAssets   Phase = "assets"
	PhaseRecord   Phase = "record"
	PhaseCommit   Phase = "commit"
)

// PhaseError wraps the error that stopped a transaction.
type PhaseError struct {
	Phase Phase
	TxID  string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf(messages.TxnPhaseErrorFmt, e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one applied operation.
type Outcome struct {
	Kind     reconcile.Kind `json:"kind"`
	Path     string         `json:"path"`
	Dir      bool           `json:"dir,omitempty"`
	Attempts int            `json:"attempts"`
	Error    string         `json:"error,omitempty"`
}

// Transaction is one end-to-end language change.
type Transaction struct {
	ID       string         `json:"id"`
	Previous lang.Selection `json:"previous"`
	Target   lang.Selection `json:"target"`
	Plan     reconcile.Plan `json:"plan"`
	State    State          `json:"state"`
	Outcomes []Outcome      `json:"outcomes"`

	mu sync.Mutex
}

func (tx *Transaction) record(o Outcome) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.Outcomes = append(tx.Outcomes, o)
}

// Applied counts operations that completed.
func (tx *Transaction) Applied() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	n := 0
	for _, o := range tx.Outcomes {
		if o.Error == "" {
			n++
		}
	}
	return n
}
