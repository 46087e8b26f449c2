package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the built-in sample corpus",
	Long:  `Writes four sample question/answer records to the corpus file so the assistant can be tried without the MedQuAD download. An existing corpus is left untouched.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		written, err := a.Assistant.Seed(cmd.Context())
		if err != nil {
			return err
		}
		if written {
			success.Fprintf(cmd.OutOrStdout(), "Sample data generated at %s\n", currentConfig.Data.CorpusPath)
		} else {
			warning.Fprintf(cmd.OutOrStdout(), "%s already exists.\n", currentConfig.Data.CorpusPath)
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Convert MedQuAD XML documents into the corpus",
	Long:  `Walks dir (default: data.xml_dir) for *.xml files and replaces the corpus with every question/answer pair found. Unparsable files are skipped.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := currentConfig.Data.XMLDir
		if len(args) == 1 {
			dir = args[0]
		}
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		n, ok, err := a.Assistant.Ingest(cmd.Context(), dir)
		if err != nil {
			return err
		}
		if !ok {
			warning.Fprintf(cmd.OutOrStdout(), "No XML records found in '%s'\n", dir)
			return nil
		}
		success.Fprintf(cmd.OutOrStdout(), "XML processed successfully: %d records written to %s\n", n, currentConfig.Data.CorpusPath)
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the corpus and rebuild the vector index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ok, err := a.Assistant.Build(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		if !ok {
			return fmt.Errorf("failed to build index; ensure data exists")
		}
		success.Fprintln(cmd.OutOrStdout(), "Index built successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, ingestCmd, buildCmd)
}
