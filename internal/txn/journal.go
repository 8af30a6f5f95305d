package txn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conn-castle/langpatch/internal/lang"
	"github.com/conn-castle/langpatch/internal/messages"
	"github.com/conn-castle/langpatch/internal/reconcile"
)

const (
	journalSchemaVersion = 1
	journalFileName      = "journal.jsonl"
	stagingDirName       = "staging"
)

type journalEvent string

const (
	journalEventState journalEvent = "state"
	journalEventOp    journalEvent = "op"
)

type journalOp struct {
	Kind     reconcile.Kind `json:"kind"`
	Path     string         `json:"path"`
	Dir      bool           `json:"dir,omitempty"`
	Attempts int            `json:"attempts"`
}

type journalRecord struct {
	SchemaVersion int             `json:"schema_version"`
	TxID          string          `json:"tx_id"`
	TimeUTC       string          `json:"time_utc"`
	Event         journalEvent    `json:"event"`
	State         State           `json:"state,omitempty"`
	Previous      *lang.Selection `json:"previous,omitempty"`
	Target        *lang.Selection `json:"target,omitempty"`
	Operations    int             `json:"operations,omitempty"`
	Op            *journalOp      `json:"op,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// StateDirPath returns the tool's state directory under audioRoot.
func StateDirPath(audioRoot string) string {
	return filepath.Join(audioRoot, reconcile.StateDir)
}

// JournalPath returns the journal location under audioRoot.
func JournalPath(audioRoot string) string {
	return filepath.Join(StateDirPath(audioRoot), journalFileName)
}

func stagingPath(audioRoot string) string {
	return filepath.Join(StateDirPath(audioRoot), stagingDirName)
}

// journal appends fsynced JSON lines. It is safe for concurrent use.
type journal struct {
	mu   sync.Mutex
	file File
	txID string
	now  func() time.Time
}

func createJournal(sys System, audioRoot string, txID string, now func() time.Time) (*journal, error) {
	if err := sys.MkdirAll(StateDirPath(audioRoot), 0o755); err != nil {
		return nil, fmt.Errorf(messages.TxnCreateStateDirFmt, err)
	}
	path := JournalPath(audioRoot)
	f, err := sys.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf(messages.TxnJournalOpenFmt, path, err)
	}
	return &journal{file: f, txID: txID, now: now}, nil
}

func (j *journal) append(rec journalRecord) error {
	rec.SchemaVersion = journalSchemaVersion
	rec.TxID = j.txID
	rec.TimeUTC = j.now().UTC().Format(time.RFC3339Nano)
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf(messages.TxnJournalEncodeFmt, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(line); err != nil {
		return fmt.Errorf(messages.TxnJournalWriteFmt, j.file.Name(), err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf(messages.TxnJournalWriteFmt, j.file.Name(), err)
	}
	return nil
}

func (j *journal) state(tx *Transaction, errText string) error {
	rec := journalRecord{Event: journalEventState, State: tx.State, Error: errText}
	if tx.State == StatePlanned {
		prev, target := tx.Previous, tx.Target
		rec.Previous = &prev
		rec.Target = &target
		rec.Operations = len(tx.Plan.Operations)
	}
	return j.append(rec)
}

func (j *journal) op(o Outcome) error {
	return j.append(journalRecord{
		Event: journalEventOp,
		Op:    &journalOp{Kind: o.Kind, Path: o.Path, Dir: o.Dir, Attempts: o.Attempts},
		Error: o.Error,
	})
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Interrupted summarizes a journal left behind by a transaction that did not commit.
type Interrupted struct {
	ID         string         `json:"id"`
	State      State          `json:"state"`
	Previous   lang.Selection `json:"previous"`
	Target     lang.Selection `json:"target"`
	Operations int            `json:"operations"`
	Applied    int            `json:"applied"`
	Failed     int            `json:"failed"`
	StartedAt  string         `json:"started_at"`
	UpdatedAt  string         `json:"updated_at"`
	LastError  string         `json:"last_error,omitempty"`
}

// ReadJournal summarizes the journal under audioRoot. ok is false when there is none.
// A torn final line, left by a crash mid-append, is ignored.
func ReadJournal(sys System, audioRoot string) (Interrupted, bool, error) {
	path := JournalPath(audioRoot)
	data, err := sys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Interrupted{}, false, nil
		}
		return Interrupted{}, false, fmt.Errorf(messages.TxnJournalReadFmt, path, err)
	}

	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	var out Interrupted
	seen := false
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			if i == len(lines)-1 {
				break
			}
			return Interrupted{}, false, fmt.Errorf(messages.TxnJournalDecodeFmt, path, i+1, err)
		}
		if !seen {
			out.ID = rec.TxID
			out.StartedAt = rec.TimeUTC
			seen = true
		}
		out.UpdatedAt = rec.TimeUTC
		switch rec.Event {
		case journalEventState:
			out.State = rec.State
			if rec.Previous != nil {
				out.Previous = *rec.Previous
			}
			if rec.Target != nil {
				out.Target = *rec.Target
			}
			if rec.Operations > 0 {
				out.Operations = rec.Operations
			}
		case journalEventOp:
			if rec.Error == "" {
				out.Applied++
			} else {
				out.Failed++
			}
		}
		if rec.Error != "" {
			out.LastError = rec.Error
		}
	}
	if !seen {
		return Interrupted{}, false, nil
	}
	return out, true, nil
}
