package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vocdoni/arbo/memdb"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/service"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/verifier"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs the ballot box API",
		RunE:  serveFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}
	log.Init(config.LogLevel, config.LogOutput, nil)

	var database db.Database
	if config.DataDir == "" {
		log.Warn("no data directory given, the ledger is kept in memory")
		database = memdb.New()
	} else {
		database, err = metadb.New(db.TypePebble, config.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open the database: %w", err)
		}
	}
	stg := storage.New(database)
	defer stg.Close()

	ctx := c.Context()
	var vkey []byte
	if config.VerifierVKey != nil {
		if err := config.VerifierVKey.Load(ctx); err != nil {
			return fmt.Errorf("failed to load the verification key: %w", err)
		}
		vkey = config.VerifierVKey.Content
	}
	v, err := verifier.New(config.Verifier, vkey, config.VerifierCache)
	if err != nil {
		return fmt.Errorf("failed to load the verifier: %w", err)
	}
	m, err := metrics.New()
	if err != nil {
		return err
	}
	feed := election.NewFeed(election.DefaultFeedBuffer)
	defer feed.Close()

	conf := election.Config{Storage: stg, Feed: feed, Metrics: m}
	commitReveal := election.NewCommitReveal(conf)
	anonymous := election.NewAnonymous(conf, v)

	monitor := service.NewEventMonitor(stg, feed, nil)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	api := service.NewAPI(stg, commitReveal, anonymous, m, config.Host, config.Port)
	if err := api.Start(ctx); err != nil {
		return err
	}
	defer api.Stop()
	log.Infow("ballot box ready",
		"address", api.Addr(),
		"verifier", config.Verifier,
		"datadir", config.DataDir,
	)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
