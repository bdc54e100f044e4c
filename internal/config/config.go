package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs to talk to the gateway and
// protect stored payment data.
type Config struct {
	Port    string `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	BaseURL string `yaml:"base_url"`

	Merchant string `yaml:"merchant"`
	Secret   string `yaml:"secret"`

	// Protocol selects the charge-protocol variant: "token" or "alu".
	Protocol      string `yaml:"protocol"`
	TokenEndpoint string `yaml:"token_endpoint"`
	ALUEndpoint   string `yaml:"alu_endpoint"`

	// CipherKey is the 64-char hex AES key for field-level encryption.
	CipherKey string `yaml:"cipher_key"`

	// StrictPrivacy extends audit-log redaction to address, phone, name and
	// browsing IP fields.
	StrictPrivacy bool `yaml:"strict_privacy"`
}

// Load reads configuration from the environment (a .env file is honored when
// present) and then applies an optional YAML file named by PAYU_CONFIG on
// top.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file found, relying on environment")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "payu.db"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		Merchant:      getEnv("PAYU_MERCHANT", ""),
		Secret:        getEnv("PAYU_KEY", ""),
		Protocol:      getEnv("PAYU_PROTOCOL", "token"),
		TokenEndpoint: getEnv("PAYU_TOKEN_ENDPOINT", "https://secure.payu.ro/order/token/v2/merchantToken/"),
		ALUEndpoint:   getEnv("PAYU_ALU_ENDPOINT", "https://secure.payu.ro/order/alu/v3"),
		CipherKey:     getEnv("PAYMENT_METHOD_SECRET", ""),
		StrictPrivacy: getEnv("STRICT_PRIVACY", "") == "1",
	}

	if path := os.Getenv("PAYU_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Merchant == "" {
		return fmt.Errorf("merchant id is required (PAYU_MERCHANT)")
	}
	if c.Secret == "" {
		return fmt.Errorf("merchant key is required (PAYU_KEY)")
	}
	if c.CipherKey == "" {
		return fmt.Errorf("field encryption key is required (PAYMENT_METHOD_SECRET)")
	}
	if c.Protocol != "token" && c.Protocol != "alu" {
		return fmt.Errorf("unknown protocol %q, want token or alu", c.Protocol)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
