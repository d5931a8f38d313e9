package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	HTTP       HTTPConfig       `yaml:"http"`
	Orders     OrdersConfig     `yaml:"orders"`
	Loyalty    LoyaltyConfig    `yaml:"loyalty"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type OrdersConfig struct {
	// NumberPrefix is the leading token of generated order numbers,
	// e.g. "BR" in BR-20250131-004.
	NumberPrefix string `yaml:"number_prefix"`
	// MaxNumberRetries bounds retries after an order-number collision.
	MaxNumberRetries int `yaml:"max_number_retries"`
}

type LoyaltyConfig struct {
	// PointsPerCurrencyUnit: points earned per one currency unit spent.
	PointsPerCurrencyUnit int `yaml:"points_per_currency_unit"`
	// PointsToCurrencyRate: points worth one currency unit when redeemed.
	PointsToCurrencyRate int `yaml:"points_to_currency_rate"`
	// RewardMilestone is the lifetime-points interval between reward tiers.
	RewardMilestone int `yaml:"reward_milestone"`
}

type AggregatorConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.Orders.NumberPrefix == "" {
		cfg.Orders.NumberPrefix = "BR"
	}
	if cfg.Orders.MaxNumberRetries == 0 {
		cfg.Orders.MaxNumberRetries = 3
	}
	if cfg.Loyalty.PointsPerCurrencyUnit == 0 {
		cfg.Loyalty.PointsPerCurrencyUnit = 10
	}
	if cfg.Loyalty.PointsToCurrencyRate == 0 {
		cfg.Loyalty.PointsToCurrencyRate = 100
	}
	if cfg.Loyalty.RewardMilestone == 0 {
		cfg.Loyalty.RewardMilestone = 1000
	}
	if cfg.Aggregator.IntervalSeconds == 0 {
		cfg.Aggregator.IntervalSeconds = 60
	}
}
