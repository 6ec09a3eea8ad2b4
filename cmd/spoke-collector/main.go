// Command spoke-collector collects atSpoke helpdesk data into a graph of
// entities and relationships.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/spoke-connector/pkg/integration"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("spoke-collector failed")
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the run finished with failed steps, 1 otherwise.
func exitCode(err error) int {
	if integration.IsRunError(err) {
		return 2
	}
	return 1
}
