// Command sercha-rag answers questions from a local knowledge base.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/bootstrap"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app, err := bootstrap.New(bootstrap.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings:  app.Settings,
		Prompts:   app.Prompts,
		Extractor: app.Extractor,
		Metrics:   app.Metrics.Handler(),
		ConfigDir: app.ConfigDir,
		OpenPipeline: func(ctx context.Context) (driving.RAGService, func(context.Context) error, error) {
			p, err := app.OpenPipeline(ctx)
			if err != nil {
				return nil, nil, err
			}
			return p.Service, p.Close, nil
		},
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
