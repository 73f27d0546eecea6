package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read from the environment at startup.
type Config struct {
	HTTPPort string `env:"PORT" env-default:"8080"`

	MongoURI string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" env-default:"garageops"`

	RedisAddr string `env:"REDIS_ADDR" env-default:"localhost:6379"`

	JWTSecret string `env:"JWT_SECRET" env-default:"super-secret-key-change-in-production"`

	// Dev login credentials; real deployments front this service with the
	// workshop's identity provider.
	TechUsername string `env:"TECH_USERNAME" env-default:"tech"`
	TechPassword string `env:"TECH_PASSWORD" env-default:"password123"`
	OrgID        string `env:"ORG_ID" env-default:"org_default"`

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}
