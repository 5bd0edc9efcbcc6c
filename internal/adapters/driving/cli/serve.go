package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON HTTP API",
	Long: `Serve the document and query operations as a JSON HTTP API.

Endpoints:
  POST   /v1/documents          add a document
  POST   /v1/documents/batch    add up to 50 documents
  PUT    /v1/documents/{id}     replace a document
  DELETE /v1/documents/{id}     remove a document (?domain=)
  POST   /v1/query              answer a question
  GET    /v1/status             pipeline status
  GET    /healthz               liveness
  GET    /metrics               Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rag, err := pipeline(cmd.Context())
	if err != nil {
		return err
	}

	var opts []httpapi.Option
	if metricsHandler != nil {
		opts = append(opts, httpapi.WithMetricsHandler(metricsHandler))
	}

	server, err := httpapi.New(rag, opts...)
	if err != nil {
		return err
	}

	cmd.Printf("HTTP API listening on %s\n", serveAddr)
	return server.Run(cmd.Context(), serveAddr)
}
