package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// The sweep worker is a latency optimization: every open attempt advances
// lazily on its next status poll anyway, so running this is optional.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Periodically advance open payment attempts",
	Long:  `Run the verification sweep loop over open payment attempts so settlement does not wait for the next client poll.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweepWorker()
	},
}

var (
	sweepInterval  time.Duration
	sweepBatchSize int
)

func init() {
	sweepCmd.Flags().DurationVar(&sweepInterval, "interval", 30*time.Second, "time between sweep rounds")
	sweepCmd.Flags().IntVar(&sweepBatchSize, "batch-size", 100, "max open attempts per round")
}

func startSweepWorker() {
	engine, err := buildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	engine.Logger.Info("starting sweep worker",
		"interval", sweepInterval,
		"batch_size", sweepBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			engine.Logger.Info("received signal, stopping sweep worker", "signal", sig)
			if err := engine.DB.Close(); err != nil {
				engine.Logger.Error("database close error", "error", err)
			}
			return
		case <-ticker.C:
			advanced, err := engine.PaymentService.SweepOpenAttempts(ctx, sweepBatchSize)
			if err != nil {
				engine.Logger.Error("sweep round failed", "error", err)
				continue
			}
			if advanced > 0 {
				engine.Logger.Info("sweep round advanced attempts", "count", advanced)
			}
		}
	}
}
