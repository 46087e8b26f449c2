package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"medrag/internal/domain"
	"medrag/internal/fsutil"
)

// Metadata is the persisted snapshot of the rows an index was built from. Rows[i] is the
// record behind vector id i; Row.ID keeps the record's position in the corpus file.
type Metadata struct {
	Model         string          `json:"model"`
	Dimension     int             `json:"dimension"`
	Count         int             `json:"count"`
	BuiltAt       time.Time       `json:"built_at"`
	Rows          []domain.Row    `json:"rows"`
	EmbedderState json.RawMessage `json:"embedder_state,omitempty"`
}

// WriteMetadata atomically replaces the snapshot at path.
func WriteMetadata(path string, m Metadata) error {
	m.Count = len(m.Rows)
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(m)
	})
}

// ReadMetadata loads and sanity checks the snapshot at path.
func ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()
	var m Metadata
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	if m.Count != len(m.Rows) {
		return Metadata{}, fmt.Errorf("metadata %s is truncated: header says %d rows, found %d", path, m.Count, len(m.Rows))
	}
	if m.Dimension <= 0 {
		return Metadata{}, fmt.Errorf("metadata %s has invalid dimension %d", path, m.Dimension)
	}
	return m, nil
}
