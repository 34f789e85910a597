package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/satriahrh/voicecache/internal/auth"
)

var (
	tokenTTL time.Duration

	tokenCmd = &cobra.Command{
		Use:   "token CLIENT_ID",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			ttl := cfg.JWTTTL
			if cmd.Flags().Changed("ttl") {
				ttl = tokenTTL
			}

			token, expiresAt, err := auth.GenerateClientToken(args[0], []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", humanize.Time(expiresAt))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
)

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default $JWT_TTL)")
}
