package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// StateFile records, per vault path, the note version and file checksum of the last sync.
const StateFile = "_sync_state.json"

// Entry is the sync record of one file.
type Entry struct {
	Version  int       `json:"version"`
	Checksum string    `json:"checksum,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// State is the content of StateFile.
type State struct {
	Notes    map[string]Entry `json:"notes"`
	LastSync *time.Time       `json:"last_sync"`
}

func loadState(p Provider) (*State, error) {
	st := &State{Notes: map[string]Entry{}}
	data, err := p.Read(StateFile)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("vault: decode %s: %w", StateFile, err)
	}
	if st.Notes == nil {
		st.Notes = map[string]Entry{}
	}
	return st, nil
}

func saveState(p Provider, st *State, now time.Time) error {
	st.LastSync = &now
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode %s: %w", StateFile, err)
	}
	return p.Write(StateFile, data)
}
