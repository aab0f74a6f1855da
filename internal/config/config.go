package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Discord   Discord   `yaml:"discord"`
	ESI       ESI       `yaml:"esi"`
	SSO       SSO       `yaml:"sso"`
	Auth      Auth      `yaml:"auth"`
	Reconcile Reconcile `yaml:"reconcile"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Discord struct {
	Token string `yaml:"token"`
}

type ESI struct {
	BaseURL            string `yaml:"baseURL"`
	UserAgent          string `yaml:"userAgent"`
	CacheTTLMinutes    int    `yaml:"cacheTTLMinutes"`
	RetryAttempts      int    `yaml:"retryAttempts"`
	RetryDelayMillis   int    `yaml:"retryDelayMillis"`
	BatchMaxConcurrent int    `yaml:"batchMaxConcurrent"`
	BatchMaxPerSecond  int    `yaml:"batchMaxPerSecond"`
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
}

type SSO struct {
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret"`
	RedirectURI  string   `yaml:"redirectURI"`
	Scopes       []string `yaml:"scopes"`
	BaseURL      string   `yaml:"baseURL"`
	DiscoveryURL string   `yaml:"discoveryURL"`
}

type Auth struct {
	AttemptTTLMinutes    int `yaml:"attemptTTLMinutes"`
	SweepIntervalSeconds int `yaml:"sweepIntervalSeconds"`
}

type Reconcile struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
}

func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.ESI.BaseURL == "" {
		c.ESI.BaseURL = "https://esi.evetech.net/latest"
	}
	if c.ESI.UserAgent == "" {
		c.ESI.UserAgent = "corpsync"
	}
	if c.ESI.CacheTTLMinutes <= 0 {
		c.ESI.CacheTTLMinutes = 15
	}
	if c.ESI.RetryAttempts <= 0 {
		c.ESI.RetryAttempts = 2
	}
	if c.ESI.RetryDelayMillis <= 0 {
		c.ESI.RetryDelayMillis = 500
	}
	if c.ESI.BatchMaxConcurrent <= 0 {
		c.ESI.BatchMaxConcurrent = 2
	}
	if c.ESI.BatchMaxPerSecond <= 0 {
		c.ESI.BatchMaxPerSecond = 5
	}
	if c.ESI.TimeoutSeconds <= 0 {
		c.ESI.TimeoutSeconds = 10
	}
	if c.SSO.BaseURL == "" {
		c.SSO.BaseURL = "https://login.eveonline.com/v2/oauth"
	}
	if c.SSO.DiscoveryURL == "" {
		c.SSO.DiscoveryURL = "https://login.eveonline.com/.well-known/oauth-authorization-server"
	}
	if c.Auth.AttemptTTLMinutes <= 0 {
		c.Auth.AttemptTTLMinutes = 30
	}
	if c.Auth.SweepIntervalSeconds <= 0 {
		c.Auth.SweepIntervalSeconds = 60
	}
	if c.Reconcile.IntervalMinutes <= 0 {
		c.Reconcile.IntervalMinutes = 15
	}
}
