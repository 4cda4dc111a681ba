package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	WEBHOOK_SECRET string `env:"WEBHOOK_SECRET"`
	HUB_NOTIFY_URL string `env:"HUB_NOTIFY_URL"`

	FACT_API_URL      string        `env:"FACT_API_URL"`
	FACT_API_KEY      string        `env:"FACT_API_KEY"`
	FACT_USERNAME     string        `env:"FACT_USERNAME"`
	FACT_TIMEOUT      time.Duration `env:"FACT_TIMEOUT_MS"`
	FACT_AUTH_TIMEOUT time.Duration `env:"FACT_AUTH_TIMEOUT_MS"`

	KAFKA_BROKERS string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC   string `env:"KAFKA_TOPIC"`

	STORE_ID                 string `env:"STORE_ID"`
	DEFAULT_SERIE            string `env:"DEFAULT_SERIE"`
	DEFAULT_TIPO_COMPROBANTE int    `env:"DEFAULT_TIPO_COMPROBANTE"`
	IGV_RATE                 string `env:"IGV_RATE"`
	MONEDA                   string `env:"MONEDA"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT:      os.Getenv("HTTP_PORT"),
		DB_STRING:      os.Getenv("DB_STRING"),
		WEBHOOK_SECRET: os.Getenv("WEBHOOK_SECRET"),
		HUB_NOTIFY_URL: os.Getenv("HUB_NOTIFY_URL"),
		FACT_API_URL:   os.Getenv("FACT_API_URL"),
		FACT_API_KEY:   os.Getenv("FACT_API_KEY"),
		FACT_USERNAME:  os.Getenv("FACT_USERNAME"),
		KAFKA_BROKERS:  os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:    os.Getenv("KAFKA_TOPIC"),
		STORE_ID:       os.Getenv("STORE_ID"),
		DEFAULT_SERIE:  os.Getenv("DEFAULT_SERIE"),
		IGV_RATE:       os.Getenv("IGV_RATE"),
		MONEDA:         os.Getenv("MONEDA"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.DEFAULT_SERIE == "" {
		cfg.DEFAULT_SERIE = "F001"
	}
	if cfg.IGV_RATE == "" {
		cfg.IGV_RATE = "0.18"
	}
	if cfg.MONEDA == "" {
		cfg.MONEDA = "PEN"
	}
	if cfg.STORE_ID == "" {
		cfg.STORE_ID = "1"
	}
	if cfg.KAFKA_TOPIC == "" {
		cfg.KAFKA_TOPIC = "facturas.emitidas"
	}

	cfg.DEFAULT_TIPO_COMPROBANTE = intEnv("DEFAULT_TIPO_COMPROBANTE", 1)
	cfg.FACT_TIMEOUT = time.Duration(intEnv("FACT_TIMEOUT_MS", 15000)) * time.Millisecond
	cfg.FACT_AUTH_TIMEOUT = time.Duration(intEnv("FACT_AUTH_TIMEOUT_MS", 5000)) * time.Millisecond

	if cfg.WEBHOOK_SECRET == "" {
		return nil, errors.New("WEBHOOK_SECRET is required")
	}
	if cfg.FACT_API_URL == "" {
		return nil, errors.New("FACT_API_URL is required")
	}

	return cfg, nil
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
