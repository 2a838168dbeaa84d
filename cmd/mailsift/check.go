// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/siemens/mailsift/config"
	"github.com/siemens/mailsift/zerobounce"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Verification backends for checking single addresses.
const (
	backendLocal      = "local"
	backendZeroBounce = "zerobounce"
)

var errNotAnAddress = errors.New("please provide a valid email address")

func newCheckCmd() *cobra.Command {
	var backend, zerobounceURL *string
	cmd := &cobra.Command{
		Use:   "check [flags] ADDRESS",
		Short: "check a single email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *settings
			if cmd.Flags().Changed("zerobounce-url") {
				cfg.ZeroBounce.BaseURL = *zerobounceURL
			}
			switch *backend {
			case backendLocal:
				return CheckLocally(cmd.Context(), cmd.OutOrStdout(), &cfg, args[0])
			case backendZeroBounce:
				return CheckWithZeroBounce(cmd.Context(), cmd.OutOrStdout(), &cfg, args[0])
			}
			return fmt.Errorf("unknown --backend %q, must be %q or %q",
				*backend, backendLocal, backendZeroBounce)
		},
	}
	backend = cmd.Flags().String("backend", backendLocal,
		fmt.Sprintf("verification backend: %q or %q", backendLocal, backendZeroBounce))
	zerobounceURL = cmd.Flags().String("zerobounce-url", "", "ZeroBounce API base URL")
	return cmd
}

// CheckLocally verifies a single address by syntax, MX records and mail
// server acceptance, printing its classification.
func CheckLocally(ctx context.Context, out io.Writer, cfg *config.Config, address string) error {
	log := logrus.StandardLogger()
	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()
	verdict := eng.pipeline.Verify(ctx, address)
	if verdict.Err != nil {
		fmt.Fprintf(out, "%s: %s (%s)\n", address,
			classStyle(verdict.Class).Styled(verdict.Class.String()), verdict.Err)
		return nil
	}
	fmt.Fprintf(out, "%s: %s\n", address, classStyle(verdict.Class).Styled(verdict.Class.String()))
	return nil
}

// CheckWithZeroBounce asks the ZeroBounce API about a single address,
// printing its verdict.
func CheckWithZeroBounce(ctx context.Context, out io.Writer, cfg *config.Config, address string) error {
	if !zerobounce.Precheck(address) {
		return errNotAnAddress
	}
	client := zerobounce.New(cfg.ZeroBounce.APIKey,
		zerobounce.WithBaseURL(cfg.ZeroBounce.BaseURL),
		zerobounce.WithIPAddress(cfg.ZeroBounce.IPAddress),
		zerobounce.WithLogger(logrus.StandardLogger()))
	result, err := client.Validate(ctx, address)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result.Message())
	return nil
}
