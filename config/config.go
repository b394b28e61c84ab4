package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Devices maps a name to the device description URL (setup.xml).
	Devices map[string]string `yaml:"devices"`

	Transport struct {
		Timeout time.Duration `yaml:"timeout" envconfig:"WEMO_TIMEOUT"`
	} `yaml:"transport"`

	Retry struct {
		Attempts       int           `yaml:"attempts" envconfig:"WEMO_RETRY_ATTEMPTS"`
		DecodeAttempts int           `yaml:"decode_attempts" envconfig:"WEMO_DECODE_ATTEMPTS"`
		Backoff        string        `yaml:"backoff" envconfig:"WEMO_BACKOFF"`
		Interval       time.Duration `yaml:"interval" envconfig:"WEMO_BACKOFF_INTERVAL"`
	} `yaml:"retry"`

	Discovery struct {
		TTL time.Duration `yaml:"ttl" envconfig:"WEMO_DISCOVERY_TTL"`
	} `yaml:"discovery"`

	Verbose bool `yaml:"verbose" envconfig:"WEMO_VERBOSE"`
}

// Default returns the config used when the yaml file leaves fields out.
func Default() Config {
	var cfg Config
	cfg.Transport.Timeout = 5 * time.Second
	cfg.Retry.Attempts = 2
	cfg.Retry.Backoff = "constant"
	cfg.Retry.Interval = 500 * time.Millisecond
	cfg.Discovery.TTL = 15 * time.Minute

	return cfg
}

// Load reads the yaml file and overlays values from the environment. Absent
// yaml fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&cfg)
	if err != nil {
		return cfg, err
	}

	// Then load values from environment
	// This can be used to either override the config or pass in secrets
	err = envconfig.Process("", &cfg)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Get() Config {
	_ = godotenv.Load()

	cfg, err := Load("config.yml")
	if err != nil {
		log.Fatalln("Failed to load config", err)
	}

	return cfg
}
