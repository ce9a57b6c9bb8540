package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/yanqian/askcache/internal/infra/cachestore"
	"github.com/yanqian/askcache/internal/infra/config"
)

func newSchemaCmd() *cobra.Command {
	var (
		dims  int
		apply bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or apply the cache table DDL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dims") {
				dims = cfg.Semantic.Dimensions
			}

			if !apply {
				for _, stmt := range cachestore.SchemaStatements(dims) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
				}
				return nil
			}

			dsn := strings.TrimSpace(cfg.Postgres.DSN)
			if dsn == "" {
				return errors.New("postgres dsn is not configured")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := pgxpool.New(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			if err := cachestore.EnsureSchema(ctx, pool, dims); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
	cmd.Flags().IntVar(&dims, "dims", 0, "embedding dimensions (defaults to semantic.dimensions)")
	cmd.Flags().BoolVar(&apply, "apply", false, "execute the statements against postgres.dsn")
	return cmd
}
