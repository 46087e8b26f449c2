package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"medrag/internal/domain"
	"medrag/internal/fsutil"
)

const helpText = `Commands:
  /seed           write the built-in sample corpus (kept if one exists)
  /ingest [dir]   convert MedQuAD XML files under dir into the corpus
  /build          embed the corpus and rebuild the index
  /key <api key>  use this API key for the rest of the session
  /save <path>    export the conversation as Markdown
  /help           show this help
Ctrl+C or Ctrl+D quits.`

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	switch name {
	case "/help":
		m.notice = helpText
		m.refresh()
		return m, nil
	case "/key":
		if len(args) != 1 {
			m.status = "Usage: /key <api key>"
			return m, nil
		}
		m.assistant.SetCredential(args[0])
		m.status = "API key set for this session."
		return m, nil
	case "/save":
		if len(args) != 1 {
			m.status = "Usage: /save <path>"
			return m, nil
		}
		if err := SaveTranscript(args[0], m.sessionID, m.turns); err != nil {
			m.status = "Error: " + err.Error()
		} else {
			m.status = fmt.Sprintf("Saved %d messages to %s.", len(m.turns), args[0])
		}
		return m, nil
	case "/seed":
		return m.run("Generating sample data...", func() actionMsg {
			written, err := m.assistant.Seed(m.ctx)
			switch {
			case err != nil:
				return actionMsg{err: err}
			case written:
				return actionMsg{status: "Sample data generated!"}
			default:
				return actionMsg{status: "Corpus already exists, left unchanged."}
			}
		})
	case "/ingest":
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		return m.run("Converting XML to CSV...", func() actionMsg {
			n, ok, err := m.assistant.Ingest(m.ctx, dir)
			switch {
			case err != nil:
				return actionMsg{err: err}
			case !ok:
				return actionMsg{status: "No XML records found."}
			default:
				return actionMsg{status: fmt.Sprintf("XML processed successfully: %d records. Run /build next.", n)}
			}
		})
	case "/build":
		return m.run("Embedding data and building index...", func() actionMsg {
			ok, err := m.assistant.Build(m.ctx)
			switch {
			case err != nil:
				return actionMsg{err: fmt.Errorf("failed to build index: %w", err)}
			case !ok:
				return actionMsg{status: "Failed to build index. Ensure data exists."}
			default:
				return actionMsg{status: "Index built successfully!"}
			}
		})
	default:
		m.status = fmt.Sprintf("Unknown command %s. Try /help.", name)
		return m, nil
	}
}

func (m Model) run(status string, fn func() actionMsg) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = status
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg { return fn() })
}

// SaveTranscript writes turns to path as a Markdown document.
func SaveTranscript(path, sessionID string, turns []domain.ConversationTurn) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "# Healthcare assistant session %s\n\n_Exported %s_\n", sessionID, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		for _, t := range turns {
			who := "Assistant"
			if t.Role == domain.RoleUser {
				who = "You"
			}
			if _, err := fmt.Fprintf(w, "\n**%s:**\n\n%s\n", who, t.Content); err != nil {
				return err
			}
		}
		return nil
	})
}
