package connector

import (
	"context"
	"fmt"

	"github.com/otodash/erp-sync/pkg/config"
)

func NewConnector(ctx context.Context, cfg *config.ConnectorSettings) (Connector, error) {
	switch cfg.Type {
	case "mock":
		return NewMockConnector(), nil
	case "http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("http connector requires an endpoint")
		}
		return NewHTTPConnector(cfg.Endpoint), nil
	case "rabbitmq":
		return NewRabbitMqConnector(ctx, cfg)
	case "pubsub":
		return NewPubSubConnector(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported connector type: %s", cfg.Type)
	}
}
