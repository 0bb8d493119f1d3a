package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Manage the books in your library",
}

var listBooksCmd = &cobra.Command{
	Use:   "list",
	Short: "List all books, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		books, err := newClient().listBooks(cmd.Context())
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No books yet.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tADDED")
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var (
	uploadTitle  string
	uploadAuthor string
)

var uploadBookCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Upload a plain-text book summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		book, err := newClient().uploadBook(cmd.Context(), args[0], content, uploadTitle, uploadAuthor)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q by %s (id %s)\n", book.Title, book.Author, book.ID)
		return nil
	},
}

var deleteBookCmd = &cobra.Command{
	Use:   "delete [book-id]",
	Short: "Delete a book and its indexed text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().deleteBook(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	uploadBookCmd.Flags().StringVar(&uploadTitle, "title", "", "book title")
	uploadBookCmd.Flags().StringVar(&uploadAuthor, "author", "", "book author")
	_ = uploadBookCmd.MarkFlagRequired("title")
	_ = uploadBookCmd.MarkFlagRequired("author")

	rootCmd.AddCommand(booksCmd)
	booksCmd.AddCommand(listBooksCmd, uploadBookCmd, deleteBookCmd)
}
