package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boddenberg/client-portal-go/internal/config"
	"github.com/boddenberg/client-portal-go/internal/infra/mongostore"
	"github.com/boddenberg/client-portal-go/internal/infra/observability"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
)

func newIndexesCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes the portal needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MongoURI == "" {
				return errors.New("MONGO_URI is not set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, err := mongostore.Connect(ctx, mongostore.Options{
				URI:      cfg.MongoURI,
				Database: cfg.MongoDatabase,
				Resilience: resilience.Config{
					MaxRetries:     cfg.MaxRetries,
					InitialBackoff: cfg.InitialBackoff,
					Timeout:        cfg.StoreTimeout,
				},
			}, observability.NewMetrics(), zap.NewNop())
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexes ensured on %s\n", cfg.MongoDatabase)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}
