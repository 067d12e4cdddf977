package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	DatabaseConfig *DatabaseConfig
	IMAPConfig     *IMAPConfig
	AIConfig       *AIConfig
	VectorConfig   *VectorConfig
	NotifyConfig   *NotifyConfig
	StorageConfig  *StorageConfig
	CronConfig     *CronConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
		DatabaseConfig: &DatabaseConfig{},
		IMAPConfig:     &IMAPConfig{},
		AIConfig:       &AIConfig{},
		VectorConfig:   &VectorConfig{},
		NotifyConfig:   &NotifyConfig{},
		StorageConfig:  &StorageConfig{},
		CronConfig:     &CronConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading onebox config: %v", err)
	}

	return config, nil
}
