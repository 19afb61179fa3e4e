package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	client    = &http.Client{Timeout: 180 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "ragcli",
	Short: "Query the medical document RAG service",
	Long: `ragcli talks to a running medrag server.

Example usage:
  ragcli ask "What is the recommended dosage?"
  ragcli ask --document report.pdf "What are the contraindications?"
  ragcli auto "Which treatment had the best outcomes?"
  ragcli docs --previews "chemotherapy side effects"`,
	SilenceUsage: true,
}

var askDocument string
var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question, optionally scoped to one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return post("/v1/rag/query", map[string]any{
			"question":     args[0],
			"document_key": askDocument,
			"top_k":        askTopK,
		})
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto [question]",
	Short: "Ask a question against the automatically selected best document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return post("/v1/rag/auto", map[string]any{"question": args[0]})
	},
}

var docsTopN int
var docsPreviews bool

var docsCmd = &cobra.Command{
	Use:   "docs [question]",
	Short: "List the documents most relevant to a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return post("/v1/rag/documents", map[string]any{
			"question":      args[0],
			"top_n":         docsTopN,
			"show_previews": docsPreviews,
		})
	},
}

var retrieveDocument string
var retrieveTopK int

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the retrieved context without generating an answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return post("/v1/rag/retrieve", map[string]any{
			"question":     args[0],
			"document_key": retrieveDocument,
			"top_k":        retrieveTopK,
		})
	},
}

func post(path string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := client.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("MEDRAG_URL", "http://localhost:9020"), "medrag server URL")

	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "document key to scope the question to")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = server default)")

	docsCmd.Flags().IntVarP(&docsTopN, "top-n", "n", 0, "number of documents to return (0 = server default)")
	docsCmd.Flags().BoolVar(&docsPreviews, "previews", false, "include a preview chunk per document")

	retrieveCmd.Flags().StringVarP(&retrieveDocument, "document", "d", "", "document key to scope retrieval to")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = server default)")

	rootCmd.AddCommand(askCmd, autoCmd, docsCmd, retrieveCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
