// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/siemens/mailsift/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath      *string
	envFile         *string
	debug           *bool
	logFile         *string
	workerNumber    *uint
	unitTimeout     *time.Duration
	dnsTimeout      *time.Duration
	smtpTimeout     *time.Duration
	nameservers     *[]string
	redisURL        *string
	cacheTTL        *time.Duration
	spinnerInterval *time.Duration
)

// settings is the effective configuration after merging the configuration
// file and command line flags.
var settings *config.Config

func newRootCmd() (rootCmd *cobra.Command) {
	var logCloser io.Closer
	rootCmd = &cobra.Command{
		Use:          "mailsift",
		Short:        "mailsift verifies email addresses by syntax, MX records, and mail server acceptance",
		Version:      "0.9",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if *spinnerInterval < 10*time.Millisecond {
				return fmt.Errorf("--spinner must be at least 10ms")
			}
			var envfiles []string
			if *envFile != "" {
				envfiles = append(envfiles, *envFile)
			}
			cfg, err := config.LoadFromEnv(*configPath, envfiles...)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			settings = cfg
			logCloser, err = setupLogging(cfg.Log)
			if err != nil {
				return err
			}
			logrus.Debugf("debug logging enabled")
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}
	// Sets up the flags.
	pf := rootCmd.PersistentFlags()
	configPath = pf.String("config", "", "YAML configuration file")
	envFile = pf.String("env-file", "", "file with environment variables (default .env)")
	debug = pf.Bool("debug", false, "enable debugging output")
	logFile = pf.String("log-file", "email_service.log", "file to append log output to; empty for stderr")
	workerNumber = pf.Uint("workers", 50, "number of concurrent verifications [1..500]")
	unitTimeout = pf.Duration("unit-timeout", 30*time.Second, "maximum time to wait for a single verdict")
	dnsTimeout = pf.Duration("dns-timeout", 5*time.Second, "MX lookup timeout")
	smtpTimeout = pf.Duration("smtp-timeout", 5*time.Second, "mail server session timeout")
	nameservers = pf.StringSlice("nameserver", nil, "DNS server(s) to query, in host:port format")
	redisURL = pf.String("redis", "", "redis:// URL of a shared domain verdict cache")
	cacheTTL = pf.Duration("cache-ttl", 0, "time to keep domain verdicts; 0 keeps them forever")
	spinnerInterval = pf.Duration("spinner", 100*time.Millisecond, "spinner interval")

	rootCmd.AddCommand(newVerifyCmd(), newCheckCmd())
	return
}

// applyFlags overrides configuration values with the explicitly set command
// line flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("debug") {
		cfg.Log.Debug = *debug
	}
	if changed("log-file") {
		cfg.Log.File = *logFile
	}
	if changed("workers") {
		cfg.Workers = *workerNumber
	}
	if changed("unit-timeout") {
		cfg.UnitTimeout = *unitTimeout
	}
	if changed("dns-timeout") {
		cfg.DNS.Timeout = *dnsTimeout
	}
	if changed("smtp-timeout") {
		cfg.SMTP.Timeout = *smtpTimeout
	}
	if changed("nameserver") {
		cfg.DNS.Nameservers = *nameservers
	}
	if changed("redis") {
		cfg.Cache.Redis = *redisURL
	}
	if changed("cache-ttl") {
		cfg.Cache.TTL = *cacheTTL
	}
}

// setupLogging configures the standard logger, returning the log file to
// close when done, if any.
func setupLogging(cfg config.LogConfig) (io.Closer, error) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if cfg.File == "" {
		logrus.SetOutput(os.Stderr)
		return nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file, reason: %w", err)
	}
	logrus.SetOutput(f)
	return f, nil
}
