package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Account   string          `yaml:"account"`
	Nanopool  NanopoolConfig  `yaml:"nanopool"`
	Etherscan EtherscanConfig `yaml:"etherscan"`
	Ethplorer EthplorerConfig `yaml:"ethplorer"`
	Miner     MinerConfig     `yaml:"miner"`
	Retry     RetryConfig     `yaml:"retry"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Status    StatusConfig    `yaml:"status"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// UpstreamConfig is the common part of every upstream API configuration.
type UpstreamConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	RateLimit            int    `yaml:"rateLimit"`
	BurstLimit           int    `yaml:"burstLimit"`
}

// NanopoolConfig holds the configuration for the Nanopool client.
type NanopoolConfig struct {
	UpstreamConfig `yaml:",inline"`
	Worker         string `yaml:"worker"`
}

// EtherscanConfig holds the configuration for the Etherscan client.
type EtherscanConfig struct {
	UpstreamConfig `yaml:",inline"`
	Token          string `yaml:"token"`
}

// EthplorerConfig holds the configuration for the Ethplorer client.
type EthplorerConfig struct {
	UpstreamConfig `yaml:",inline"`
	Token          string `yaml:"token"`
}

// MinerConfig holds the local telemetry settings.
type MinerConfig struct {
	ValuesLog      string `yaml:"valuesLog"`
	MaxIdleSeconds int    `yaml:"maxIdleSeconds"`
	WindowSize     int    `yaml:"windowSize"`
}

// RetryConfig holds the retry executor settings.
type RetryConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
}

// WalletConfig holds the wallet aggregation settings.
type WalletConfig struct {
	PriceCacheTTLMinutes int `yaml:"priceCacheTTLMinutes"`
}

// StatusConfig holds the device/service status settings.
type StatusConfig struct {
	// Miners maps container name to display name.
	Miners map[string]string `yaml:"miners"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from a YAML file, fills defaults and reads
// upstream API secrets from the environment when the file leaves them empty.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if cfg.Etherscan.Token == "" {
		cfg.Etherscan.Token = os.Getenv("ETHERSCAN_TOKEN")
	}
	if cfg.Ethplorer.Token == "" {
		cfg.Ethplorer.Token = os.Getenv("ETHPLORER_TOKEN")
	}

	if cfg.Account == "" {
		logrus.Warn("No default account configured; requests must pass one explicitly.")
	}
	if cfg.Nanopool.Worker == "" {
		logrus.Warn("No worker name configured; the pool hashrate check will not constrain the active flag.")
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}

	if cfg.Nanopool.BaseURL == "" {
		cfg.Nanopool.BaseURL = "https://api.nanopool.org/v1/eth"
		logrus.Infof("Nanopool baseURL not set, defaulting to %s", cfg.Nanopool.BaseURL)
	}
	if cfg.Etherscan.BaseURL == "" {
		cfg.Etherscan.BaseURL = "https://api.etherscan.io/api"
		logrus.Infof("Etherscan baseURL not set, defaulting to %s", cfg.Etherscan.BaseURL)
	}
	if cfg.Ethplorer.BaseURL == "" {
		cfg.Ethplorer.BaseURL = "https://api.ethplorer.io"
		logrus.Infof("Ethplorer baseURL not set, defaulting to %s", cfg.Ethplorer.BaseURL)
	}

	for _, upstream := range []*UpstreamConfig{
		&cfg.Nanopool.UpstreamConfig,
		&cfg.Etherscan.UpstreamConfig,
		&cfg.Ethplorer.UpstreamConfig,
	} {
		if upstream.RequestTimeoutMillis == 0 {
			upstream.RequestTimeoutMillis = 10000
		}
	}

	if cfg.Miner.ValuesLog == "" {
		cfg.Miner.ValuesLog = "logs/miner/ether/values.log"
	}
	if cfg.Miner.MaxIdleSeconds == 0 {
		cfg.Miner.MaxIdleSeconds = 300
		logrus.Infof("Miner maxIdleSeconds not set, defaulting to %d", cfg.Miner.MaxIdleSeconds)
	}
	if cfg.Miner.WindowSize == 0 {
		cfg.Miner.WindowSize = 10
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
		logrus.Infof("Retry maxAttempts not set, defaulting to %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Wallet.PriceCacheTTLMinutes == 0 {
		cfg.Wallet.PriceCacheTTLMinutes = 5
	}

	if len(cfg.Status.Miners) == 0 {
		cfg.Status.Miners = map[string]string{
			"barrenero-miner-ether": "Ether",
		}
	}
}
