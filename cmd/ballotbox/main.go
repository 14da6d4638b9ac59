package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vocdoni/ballotbox/cmd/ballotbox/ballot"
	"github.com/vocdoni/ballotbox/cmd/ballotbox/serve"
)

func main() {
	cmd := &cobra.Command{
		Use:          "ballotbox",
		Short:        "Commit-reveal and anonymous election ledger",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		serve.Command(),
		ballot.CommitmentCommand(),
		ballot.NullifierCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
