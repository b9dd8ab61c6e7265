package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Business struct {
		Name         string `yaml:"name"`
		TargetDomain string `yaml:"target_domain"`
		BlogURL      string `yaml:"blog_url"`
	} `yaml:"business"`
	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		User      string `yaml:"user"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from_email"`
		FromName  string `yaml:"from_name"`
		UseTLS    bool   `yaml:"use_tls"`
	} `yaml:"smtp"`
	Data struct {
		Dir               string `yaml:"dir"`
		Prospects         string `yaml:"prospects_file"`
		Content           string `yaml:"content_file"`
		Messages          string `yaml:"messages_file"`
		ValidatedMessages string `yaml:"validated_messages_file"`
		OutreachLog       string `yaml:"outreach_log_file"`
		ActivityLog       string `yaml:"activity_log_file"`
		BacklinkReport    string `yaml:"backlink_report_file"`
	} `yaml:"data"`
	Matching struct {
		MinScore int `yaml:"min_score"`
	} `yaml:"matching"`
	Timeouts struct {
		DomainCheck time.Duration `yaml:"domain_check"`
		Send        time.Duration `yaml:"send"`
		FormSubmit  time.Duration `yaml:"form_submit"`
		Fetch       time.Duration `yaml:"fetch"`
	} `yaml:"timeouts"`
	Limits struct {
		MaxSendsPerRun int `yaml:"max_sends_per_run"`
	} `yaml:"limits"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional
	cfg := defaultConfig()
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.Business.Name = "Your Business"
	cfg.SMTP.Host = "smtp.gmail.com"
	cfg.SMTP.Port = 587
	cfg.SMTP.UseTLS = true
	cfg.Data.Dir = "data"
	cfg.Data.Prospects = "prospects.json"
	cfg.Data.Content = "content_summaries.json"
	cfg.Data.Messages = "outreach_messages.json"
	cfg.Data.ValidatedMessages = "outreach_messages_validated.json"
	cfg.Data.OutreachLog = "outreach_log.csv"
	cfg.Data.ActivityLog = "activity_log.jsonl"
	cfg.Data.BacklinkReport = "backlink_check.json"
	cfg.Matching.MinScore = 1
	cfg.Timeouts.DomainCheck = 5 * time.Second
	cfg.Timeouts.Send = 30 * time.Second
	cfg.Timeouts.FormSubmit = 60 * time.Second
	cfg.Timeouts.Fetch = 10 * time.Second
	cfg.Limits.MaxSendsPerRun = 50
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = p
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.SMTP.User = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM_EMAIL"); v != "" {
		cfg.SMTP.FromEmail = v
	}
	if v := os.Getenv("SMTP_USE_TLS"); v != "" {
		cfg.SMTP.UseTLS = v == "1" || v == "true"
	}
	if v := os.Getenv("SENDER_NAME"); v != "" {
		cfg.SMTP.FromName = v
	} else if v := os.Getenv("SMTP_FROM_NAME"); v != "" {
		cfg.SMTP.FromName = v
	}
	if v := os.Getenv("BUSINESS_NAME"); v != "" {
		cfg.Business.Name = v
	}
	if v := os.Getenv("TARGET_DOMAIN"); v != "" {
		cfg.Business.TargetDomain = v
	}
	if v := os.Getenv("BLOG_URL"); v != "" {
		cfg.Business.BlogURL = v
	}
	if v := os.Getenv("LINKBUILDER_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("LINKBUILDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func validate(cfg *Config) error {
	if cfg.Data.Dir == "" {
		return errors.New("data.dir is required")
	}
	if cfg.Matching.MinScore < 1 {
		return errors.New("matching.min_score must be >= 1")
	}
	if cfg.SMTP.Port <= 0 {
		return errors.New("smtp.port must be > 0")
	}
	if cfg.Limits.MaxSendsPerRun <= 0 {
		return errors.New("limits.max_sends_per_run must be > 0")
	}
	if cfg.SMTP.FromEmail == "" {
		cfg.SMTP.FromEmail = cfg.SMTP.User
	}
	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = cfg.Business.Name
	}
	return nil
}

// SMTPConfigured reports whether transport credentials are present. Without
// them the send command only processes contact-form messages.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.User != "" && c.SMTP.Password != ""
}

// Path resolves a data file name against the configured data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.Data.Dir, name)
}
