package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "library-cli",
	Short: "A CLI client for the Library service",
	Long:  `A command-line interface for uploading book summaries, managing the library and asking questions about it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if authToken == "" {
			authToken = os.Getenv("LIBRARY_TOKEN")
		}
		if authToken == "" {
			return fmt.Errorf("no access token: pass --token or set LIBRARY_TOKEN")
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the library service")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token (default $LIBRARY_TOKEN)")
}

func newClient() *apiClient {
	return newAPIClient(serverURL, authToken)
}
