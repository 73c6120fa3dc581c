package config

// ConnectorSettings holds configuration for the outbound ERP transport.
type ConnectorSettings struct {
	Type      string `mapstructure:"type" validate:"required,oneof=mock http rabbitmq pubsub"`
	Endpoint  string `mapstructure:"endpoint"`   // http: ERP ingest URL
	URL       string `mapstructure:"url"`        // rabbitmq: AMQP URL
	Exchange  string `mapstructure:"exchange"`   // rabbitmq
	ProjectID string `mapstructure:"project_id"` // pubsub
	Topic     string `mapstructure:"topic"`      // pubsub
}
