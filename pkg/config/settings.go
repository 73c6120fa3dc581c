package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Database      DbSettings        `mapstructure:"database"`
	Connector     ConnectorSettings `mapstructure:"connector"`
	Worker        WorkerSettings    `mapstructure:"worker"`
	Audit         AuditSettings     `mapstructure:"audit"`
	API           APISettings       `mapstructure:"api"`
	Observability Observability     `mapstructure:"observability"`
}

// WorkerSettings controls the sync worker's schedule.
type WorkerSettings struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	OfflineThreshold int           `mapstructure:"offline_threshold"`
}

// AuditSettings bounds the delivery audit log.
type AuditSettings struct {
	MaxEntries int `mapstructure:"max_entries"`
}

type APISettings struct {
	Addr string `mapstructure:"addr"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// ApplyDefaults fills in the values the sync pipeline depends on when the
// config file leaves them out.
func (c *Settings) ApplyDefaults() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 10 * time.Second
	}
	if c.Worker.OfflineThreshold <= 0 {
		c.Worker.OfflineThreshold = 3
	}
	if c.Audit.MaxEntries <= 0 {
		c.Audit.MaxEntries = 50
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

func LoadFromFile(filePath string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml")
	viper.SetConfigName("erpsync")
	viper.AddConfigPath(filePath) // path to config
	viper.AddConfigPath(".")      // current directory

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, "erpsync."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging %s config: %s\n", env, err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ERPSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like ERPSYNC_DATABASE_TYPE

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("database.type")
	viper.BindEnv("database.dsn")
	viper.BindEnv("database.uri")
	viper.BindEnv("database.name")
	viper.BindEnv("database.collection")
	viper.BindEnv("connector.type")
	viper.BindEnv("connector.endpoint")
	viper.BindEnv("connector.url")
	viper.BindEnv("connector.exchange")
	viper.BindEnv("connector.project_id")
	viper.BindEnv("connector.topic")
	viper.BindEnv("worker.poll_interval")
	viper.BindEnv("worker.offline_threshold")
	viper.BindEnv("audit.max_entries")
	viper.BindEnv("api.addr")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")
	viper.BindEnv("observability.metrics_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
