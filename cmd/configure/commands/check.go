package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/bootstrap"
	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/queue"
)

type probe struct {
	name string
	run  func(ctx context.Context, cfg *config.Config) error
}

var probes = []probe{
	{name: "database", run: checkDatabase},
	{name: "redis", run: checkRedis},
	{name: "rabbitmq", run: checkRabbitMQ},
}

// NewCheckCmd verifies that every configured dependency is reachable
func NewCheckCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the database, Redis and RabbitMQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Dependency check"))
			var failed []error
			for _, p := range probes {
				err := p.run(ctx, cfg)
				fmt.Fprintln(out, labelValue(p.name, okText(err == nil)))
				if err != nil {
					fmt.Fprintln(out, "  "+mutedStyle.Render(err.Error()))
					failed = append(failed, fmt.Errorf("%s: %w", p.name, err))
				}
			}
			return errors.Join(failed...)
		},
	}
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.HealthCheck(ctx)
}

func checkRedis(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		return nil
	}
	client, err := bootstrap.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	return client.Close()
}

func checkRabbitMQ(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireQueue(); err != nil {
		return err
	}
	q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()
	return q.HealthCheck(ctx)
}
