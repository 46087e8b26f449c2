package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medrag/internal/service"
)

var (
	askTopK       int
	askRerankTopK int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and list the sources used",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askTopK > 0 {
			currentConfig.Retrieval.TopK = askTopK
		}
		if askRerankTopK > 0 {
			currentConfig.Retrieval.RerankTopK = askRerankTopK
		}
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		resp := a.Assistant.Ask(cmd.Context(), strings.Join(args, " "))

		out := cmd.OutOrStdout()
		switch resp.Status {
		case service.StatusAnswered:
			fmt.Fprintln(out, resp.Answer.Display())
		case service.StatusNoResults:
			color.New(color.FgYellow).Fprintln(out, resp.Answer.Display())
		default:
			color.New(color.FgRed).Fprintln(out, resp.Answer.Display())
		}
		if len(resp.Sources) == 0 {
			return nil
		}
		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		fmt.Fprintln(out)
		bold.Fprintln(out, "Trusted Sources")
		for i, s := range resp.Sources {
			bold.Fprintf(out, "Source %d:", i+1)
			fmt.Fprintf(out, " %s (Score: %.4f)\n", s.Focus, s.RerankScore)
			fmt.Fprintf(out, "  Q: %s\n", s.Question)
			fmt.Fprintf(out, "  %s\n", a.Excerpter.Excerpt(resp.Query, s.Answer))
			faint.Fprintf(out, "  From: %s\n", s.Source)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "vector search candidates (default retrieval.top_k)")
	askCmd.Flags().IntVar(&askRerankTopK, "rerank-top-k", 0, "sources kept after reranking (default retrieval.rerank_top_k)")
	rootCmd.AddCommand(askCmd)
}
