package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func TestCSVPreservesOrderAndQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medquad.csv")
	records := []domain.Record{
		{Focus: "Asthma", Question: "What is asthma?", Answer: "A disease, with \"quotes\"\nand newlines.", Source: "a.xml"},
		{Focus: "Asthma", Question: "What is asthma?", Answer: "A disease, with \"quotes\"\nand newlines.", Source: "a.xml"},
		{Focus: "Gout", Question: "What is gout?", Answer: "Arthritis.", Source: "g.xml"},
	}
	require.NoError(t, WriteCSV(path, records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "Focus,Question,Answer,Source\n")

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestReadCSVRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medquad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Focus,Question\nA,B\n"), 0o644))
	_, err := ReadCSV(path)
	require.ErrorContains(t, err, `missing column "Answer"`)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSeedDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "medquad.csv")
	wrote, err := Seed(path)
	require.NoError(t, err)
	require.True(t, wrote)

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, SampleRecords, got)

	require.NoError(t, WriteCSV(path, SampleRecords[:1]))
	wrote, err = Seed(path)
	require.NoError(t, err)
	require.False(t, wrote)
	got, err = ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
