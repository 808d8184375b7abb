package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/perimeter"
	"github.com/praetorian-inc/perimeter/pkg/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming server for editor and CI integration",
	Long: `Run Perimeter as a long-lived server that accepts check requests
via stdin and writes reports to stdout using NDJSON.

The resolver cache is kept across requests, so repeated checks of the
same workspace get cheaper. The process runs until stdin closes, a
"close" request arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	base, err := perimeter.NewChecker(perimeter.WithLogger(newLogger(cmd)))
	if err != nil {
		return err
	}

	// Each request narrows a checker derived from base, so the resolver cache
	// is shared and unknown package names fail like they do for check.
	checker := serve.CheckerFunc(func(ctx context.Context, root string, f serve.Filter) (*perimeter.Report, error) {
		c, err := base.With(perimeter.WithPackageFilter(f.Packages), perimeter.WithKindFilter(f.Kinds))
		if err != nil {
			return nil, err
		}
		return c.CheckWorkspace(ctx, root)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(checker, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
