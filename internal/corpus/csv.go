package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"medrag/internal/domain"
	"medrag/internal/fsutil"
)

// Header is the column layout of the persisted corpus file.
var Header = []string{"Focus", "Question", "Answer", "Source"}

// WriteCSV replaces the corpus file at path with records, in order.
func WriteCSV(path string, records []domain.Record) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("write corpus header: %w", err)
		}
		for _, r := range records {
			if err := cw.Write([]string{r.Focus, r.Question, r.Answer, r.Source}); err != nil {
				return fmt.Errorf("write corpus row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ReadCSV loads the corpus file at path. Row order is preserved.
func ReadCSV(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("corpus %s has no header row", path)
		}
		return nil, fmt.Errorf("read corpus header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("corpus %s is missing column %q", path, name)
		}
	}
	field := func(row []string, name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []domain.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read corpus row %d: %w", len(records)+1, err)
		}
		records = append(records, domain.Record{
			Focus:    field(row, "Focus"),
			Question: field(row, "Question"),
			Answer:   field(row, "Answer"),
			Source:   field(row, "Source"),
		})
	}
	return records, nil
}
