package config

// DbSettings selects and configures the outbox event store backend.
type DbSettings struct {
	Type       string `mapstructure:"type" validate:"required,oneof=memory postgres mongo spanner"`
	DSN        string `mapstructure:"dsn"`        // postgres
	URI        string `mapstructure:"uri"`        // mongo connection string or spanner database path
	Name       string `mapstructure:"name"`       // mongo database name
	Collection string `mapstructure:"collection"` // mongo collection name
}
