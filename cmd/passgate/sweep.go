// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/auth"
)

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired access tokens once",
		Long:  `Delete every expired access token and exit. Useful from cron when serve runs with a long sweep interval.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			backend, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			sweeper, err := auth.NewSweeper(backend.Tokens, auth.WithSweeperLogger(logger))
			if err != nil {
				return err
			}
			n, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Deleted %d expired token(s)\n", n)
			return nil
		},
	}
}
