package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"financas/internal/dashboard"
	"financas/internal/log"
	"financas/internal/session"
	"financas/internal/statusapi"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	addCriteriaFlags(watchCmd.Flags())
	watchCmd.Flags().String("addr", "", "Status API listen address (default from config)")
	watchCmd.Flags().Bool("no-server", false, "Do not start the status API")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the owner's transactions live",
	Long: `Follow the owner's transactions live. Every change, made here or by another
process sharing the same database, prints a fresh summary line. The status API
serves /healthz, /readyz, /summary, /transactions and /metrics meanwhile.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner(cfg)
	if err != nil {
		return err
	}
	c, err := criteriaFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.StatusAddr
	}
	noServer, _ := cmd.Flags().GetBool("no-server")

	ctx := cmd.Context()
	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close backend", log.FieldError, err)
		}
	}()

	app.Board.SetCriteria(c)
	out := cmd.OutOrStdout()
	var printMu sync.Mutex
	last := ""
	stopWatch := app.Board.Watch(func(v dashboard.View) {
		line := viewLine(v)
		printMu.Lock()
		defer printMu.Unlock()
		if line == last {
			return
		}
		last = line
		fmt.Fprintln(out, line)
	})
	defer stopWatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Follow(gctx, session.Static(owner), app.Store)
	})
	if !noServer {
		srv := statusapi.NewServer(addr, app.Board,
			statusapi.WithLogger(logger),
			statusapi.WithGatherer(app.Registry),
			statusapi.WithLocation(cfg.Location()))
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	if app.Backend.Consume != nil {
		g.Go(func() error {
			return app.Backend.Consume(gctx)
		})
	}

	logger.Info("Watching transactions", log.FieldOwnerID, owner, log.FieldOperation, log.OpStartup)
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
