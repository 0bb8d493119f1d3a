package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askBookID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your library, or about one book with --book",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := chatPayload{Message: strings.Join(args, " ")}
		if askBookID != "" {
			p.BookID = askBookID
		} else {
			p.IsLibraryQuery = true
		}
		answer, err := newClient().chat(cmd.Context(), p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askBookID, "book", "", "restrict the question to one book id")
	rootCmd.AddCommand(askCmd)
}
