package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type SettlementConfig struct {
	Env          string `yaml:"env" env-default:"local"`
	HTTPServer   `yaml:"http_server"`
	SettlementDB `yaml:"settlement_db"`
	LogConfig    `yaml:"log_config"`
	KafkaService `yaml:"kafka-service"`
	UserService  `yaml:"user-service"`
	SolanaRPC    `yaml:"solana_rpc"`
	EVMRPC       `yaml:"evm_rpc"`
	TronAPI      `yaml:"tron_api"`
	RateLimits   `yaml:"rate_limits"`
	Settlement   `yaml:"settlement"`
}

type HTTPServer struct {
	Host string `yaml:"host" env-default:"0.0.0.0"`
	Port string `yaml:"port" env-default:"8080"`
}

type SettlementDB struct {
	Dsn            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrations_path"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env-default:"info"`
	LogFormat string `yaml:"log_format" env-default:"json"`
}

type KafkaService struct {
	Host  string `yaml:"host"`
	Port  string `yaml:"port"`
	Topic string `yaml:"topic" env-default:"settlement-events"`
}

type UserService struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type SolanaRPC struct {
	URL      string `yaml:"url"`
	USDTMint string `yaml:"usdt_mint"`
}

type EVMRPC struct {
	URL          string `yaml:"url"`
	USDTContract string `yaml:"usdt_contract"`
}

type TronAPI struct {
	URL          string `yaml:"url"`
	USDTContract string `yaml:"usdt_contract"`
	APIKey       string `yaml:"api_key" env:"TRON_API_KEY"`
}

type RateLimits struct {
	APIPerMinute       int `yaml:"api_per_minute" env-default:"100"`
	DecryptPerMinute   int `yaml:"decrypt_per_minute" env-default:"10"`
	KeyRotationPerHour int `yaml:"key_rotation_per_hour" env-default:"5"`
}

type Settlement struct {
	OrderTTL                  time.Duration `yaml:"order_ttl" env-default:"30m"`
	PollInterval              time.Duration `yaml:"poll_interval" env-default:"10s"`
	ExpirySweepInterval       time.Duration `yaml:"expiry_sweep_interval" env-default:"5s"`
	RemediationInterval       time.Duration `yaml:"remediation_interval" env-default:"30s"`
	RPCTimeout                time.Duration `yaml:"rpc_timeout" env-default:"10s"`
	AllowLegacySenderFallback bool          `yaml:"allow_legacy_sender_fallback" env-default:"true"`
}

func MustLoad() *SettlementConfig {

	// Processing env config variable and file
	configPath := os.Getenv("SETTLEMENT_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("SETTLEMENT_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	var cfg SettlementConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
