package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/jerseyshop/storefront-api/internal/config"
	stripeClient "github.com/jerseyshop/storefront-api/pkg/stripe"
)

const Version = "1.0.0"

type Endpoints struct {
	Gateway stripeClient.Client
}

// NewHealthHandler reports postgres, redis and the payment gateway. An
// unconfigured gateway is reported but does not fail the whole check.
func NewHealthHandler(cfg *config.Config, endpoints *Endpoints) (*health.Health, error) {
	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    "storefront-api",
			Version: Version,
		}),
		health.WithSystemInfo(),
		health.WithChecks(
			health.Config{
				Name:    "database",
				Timeout: 3 * time.Second,
				Check: postgres.New(postgres.Config{
					DSN: cfg.Database.GetDSN(),
				}),
			},
			health.Config{
				Name:    "redis",
				Timeout: 2 * time.Second,
				Check: healthRedis.New(healthRedis.Config{
					DSN: cfg.RedisConnect.GetDSN(),
				}),
			},
			health.Config{
				Name:      "stripe",
				Timeout:   5 * time.Second,
				SkipOnErr: true,
				Check:     gatewayCheck(endpoints.Gateway),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

func gatewayCheck(gateway stripeClient.Client) health.CheckFunc {
	return func(ctx context.Context) error {
		if gateway == nil {
			return errors.New("payment gateway client is not initialized")
		}

		if err := gateway.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach payment gateway: %w", err)
		}

		return nil
	}
}
