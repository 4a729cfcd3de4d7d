package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var topK int

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Print the chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		k := topK
		if k == 0 {
			k = a.Config.Retrieval.TopK
		}
		chunks, err := a.Retriever.Retrieve(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(chunks) == 0 {
			fmt.Fprintln(out, "No matching chunks.")
			return nil
		}
		for i, c := range chunks {
			fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, c.Score, c.ID)
			fmt.Fprintf(out, "   %s\n\n", strings.ReplaceAll(c.Text, "\n", "\n   "))
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Answers == nil {
			return errors.New("answer generation needs OPENAI_API_KEY")
		}

		k := topK
		if k == 0 {
			k = a.Config.Retrieval.TopK
		}
		ans, err := a.Answers.Ask(cmd.Context(), strings.Join(args, " "), k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ans.Answer)
		if len(ans.Citations) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, c := range ans.Citations {
				fmt.Fprintf(out, "  - %s (%.4f)\n", c.ID, c.Score)
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, askCmd} {
		c.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	}
	rootCmd.AddCommand(queryCmd, askCmd)
}
