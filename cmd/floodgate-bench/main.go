// Command floodgate-bench drives an in-process priority manager with a
// weighted synthetic traffic mix and reports admission latency, rejection
// breakdown and per-priority processing statistics.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitSuccess     = 0
	exitFailure     = 1
	exitInterrupted = 130 // SIGINT or SIGTERM
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, stopping benchmark...", sig)
		cancel()
	}()

	cfg, err := parseConfig()
	if err != nil {
		log.Printf("configuration error: %v", err)
		os.Exit(exitFailure)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		os.Exit(exitFailure)
	}

	suite, err := newSuite(cfg)
	if err != nil {
		log.Printf("initialization failed: %v", err)
		os.Exit(exitFailure)
	}
	defer suite.cleanup()

	report, err := suite.run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("benchmark canceled")
			os.Exit(exitInterrupted)
		}
		log.Printf("benchmark failed: %v", err)
		os.Exit(exitFailure)
	}

	if err := report.write(cfg); err != nil {
		log.Printf("failed to write report: %v", err)
		os.Exit(exitFailure)
	}
	os.Exit(exitSuccess)
}
