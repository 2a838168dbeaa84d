// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/siemens/mailsift/batch"
	"github.com/siemens/mailsift/config"
	"github.com/siemens/mailsift/sink"

	"github.com/gosuri/uilive"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var outDir, s3Bucket, s3Prefix *string
	var showProgress *bool
	cmd := &cobra.Command{
		Use:   "verify [flags] FILE|-",
		Short: "verify a list of email addresses, one address per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *settings
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = *outDir
			}
			if cmd.Flags().Changed("s3-bucket") {
				cfg.Output.S3Bucket = *s3Bucket
			}
			if cmd.Flags().Changed("s3-prefix") {
				cfg.Output.S3Prefix = *s3Prefix
			}
			input, listName := cmd.InOrStdin(), "stdin"
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("cannot open address list: %w", err)
				}
				defer f.Close()
				input, listName = f, filepath.Base(args[0])
			}
			return VerifyAndReport(cmd.Context(), cmd.OutOrStdout(), &cfg, input, listName, *showProgress)
		},
	}
	outDir = cmd.Flags().String("out", ".", "directory to write result lists into")
	s3Bucket = cmd.Flags().String("s3-bucket", "", "S3 bucket to upload result lists into, instead of a directory")
	s3Prefix = cmd.Flags().String("s3-prefix", "", "S3 object key prefix")
	showProgress = cmd.Flags().Bool("progress", true, "show live progress")
	return cmd
}

// VerifyAndReport reads an address list, verifies all addresses in it, and
// then stores the result lists per classification, finally reporting the run
// statistics. While verifying, it optionally shows the live progress.
func VerifyAndReport(ctx context.Context, out io.Writer, cfg *config.Config, input io.Reader, listName string, showProgress bool) error {
	addrs, err := batch.ReadAddresses(input)
	if err != nil {
		return fmt.Errorf("cannot read address list: %w", err)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	log := logrus.StandardLogger()
	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	store, err := newStore(ctx, cfg.Output)
	if err != nil {
		return err
	}

	prog := newProgress(len(addrs))
	runner := batch.New(eng.pipeline,
		batch.WithWorkers(cfg.Workers),
		batch.WithUnitTimeout(cfg.UnitTimeout),
		batch.WithObserver(prog.Observe),
		batch.WithLogger(log))

	// Fire off the rendering goroutine, if needed. It renders the counts until
	// the run has finished, then renders a final update and signals the end
	// of its activities via renderingDone.
	runDone := make(chan struct{})
	renderingDone := make(chan struct{})
	var dropped *int
	if showProgress {
		go func() {
			// Trigger explicit flushes after having completed the rendering
			// instead of using uilive's background updating, which would
			// flush half-rendered updates.
			term := uilive.New()
			term.Out = out
			renderer := newRenderer(term, listName, prog, *spinnerInterval)
			defer func() {
				renderer.Render(dropped)
				_ = term.Flush()
				renderer.Stop()
				close(renderingDone)
			}()
			ticker := time.NewTicker(50 * time.Millisecond)
			defer ticker.Stop()
			for {
				renderer.Render(nil)
				_ = term.Flush()
				select {
				case <-ticker.C:
				case <-runDone:
					return
				}
			}
		}()
	} else {
		close(renderingDone)
	}

	rs, stats := runner.Run(ctx, addrs)
	dropped = &stats.Dropped
	close(runDone)
	<-renderingDone

	prefix := ""
	if cfg.Output.S3Bucket != "" {
		prefix = stats.ID.String()
	}
	delivered, _, err := sink.Deliver(context.WithoutCancel(ctx), store, prefix, rs)
	fmt.Fprint(out, sink.Report(stats))
	for _, name := range delivered {
		fmt.Fprintf(out, "wrote %s\n", name)
	}
	log.WithField("batch", stats.ID.String()).Infof("%d MX lookups for %d addresses",
		eng.resolver.Lookups(), stats.Total)
	if err != nil {
		return fmt.Errorf("cannot store result lists: %w", err)
	}
	return nil
}

// newStore returns the store for result lists, as configured.
func newStore(ctx context.Context, cfg config.OutputConfig) (sink.Store, error) {
	if cfg.S3Bucket != "" {
		store, err := sink.NewS3StoreFromEnv(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return sink.NewDirStore(cfg.Dir), nil
}
