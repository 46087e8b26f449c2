package corpus

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"medrag/internal/domain"
)

type xmlDocument struct {
	Focus   string `xml:"Focus"`
	QAPairs struct {
		Pairs []xmlPair `xml:"QAPair"`
	} `xml:"QAPairs"`
}

type xmlPair struct {
	Question string `xml:"Question"`
	Answer   string `xml:"Answer"`
}

// Loader converts MedQuAD XML documents into the flat corpus file.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader logging through logger.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With("component", "corpus.loader")}
}

// ParseDocument extracts the records of one XML document. Pairs with an empty question or
// answer are dropped; a missing focus becomes domain.DefaultFocus.
func ParseDocument(r io.Reader, source string) ([]domain.Record, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	focus := strings.TrimSpace(doc.Focus)
	if focus == "" {
		focus = domain.DefaultFocus
	}
	var out []domain.Record
	for _, p := range doc.QAPairs.Pairs {
		q := strings.TrimSpace(p.Question)
		a := strings.TrimSpace(p.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, domain.Record{Focus: focus, Question: q, Answer: a, Source: source})
	}
	return out, nil
}

// LoadDirectory parses every *.xml file under root and overwrites the corpus file at
// corpusPath. ok is false when no documents or no valid records were found; in that case
// nothing is written. Unparsable documents are logged and skipped.
func (l *Loader) LoadDirectory(ctx context.Context, root, corpusPath string) (n int, ok bool, err error) {
	files, err := l.discoverXML(root)
	if err != nil {
		return 0, false, err
	}
	if len(files) == 0 {
		l.logger.Info("no xml files found", "dir", root)
		return 0, false, nil
	}
	l.logger.Info("processing xml files", "count", len(files), "dir", root)

	var records []domain.Record
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		recs, err := parseFile(path)
		if err != nil {
			l.logger.Warn("skipping document", "path", path, "error", err)
			continue
		}
		records = append(records, recs...)
	}
	if len(records) == 0 {
		l.logger.Info("no valid qa pairs extracted", "dir", root)
		return 0, false, nil
	}
	if err := WriteCSV(corpusPath, records); err != nil {
		return 0, false, err
	}
	l.logger.Info("corpus written", "path", corpusPath, "records", len(records))
	return len(records), true, nil
}

func parseFile(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDocument(f, filepath.Base(path))
}

// discoverXML walks root recursively. A missing root yields no files; unreadable entries
// below root are logged and skipped.
func (l *Loader) discoverXML(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipAll
				}
				return err
			}
			l.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover xml under %s: %w", root, err)
	}
	return files, nil
}
