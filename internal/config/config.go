package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"citas/internal/slots"
)

type Config struct {
	Server struct {
		Port       int    `yaml:"port"`
		WindowDays int    `yaml:"window_days"`
		AdminKey   string `yaml:"admin_key"`
	} `yaml:"server"`

	Business struct {
		StartHour int    `yaml:"start_hour"`
		EndHour   int    `yaml:"end_hour"`
		Capacity  int    `yaml:"capacity"`
		Timezone  string `yaml:"timezone"`
		Location  string `yaml:"location"`
	} `yaml:"business"`

	Google struct {
		CredentialsJSON    string `yaml:"credentials_json"`
		CalendarID         string `yaml:"calendar_id"`
		SheetID            string `yaml:"sheet_id"`
		SheetName          string `yaml:"sheet_name"`
		EventDurationHours int    `yaml:"event_duration_hours"`
	} `yaml:"google"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken       string  `yaml:"bot_token"`
		ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
	} `yaml:"telegram"`

	Booking struct {
		EnforceCapacity bool    `yaml:"enforce_capacity"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		RateBurst       int     `yaml:"rate_burst"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Business.EndHour <= cfg.Business.StartHour {
		return nil, fmt.Errorf("business hours window [%d, %d) is empty", cfg.Business.StartHour, cfg.Business.EndHour)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.WindowDays <= 0 {
		c.Server.WindowDays = 14
	}
	if c.Business.StartHour == 0 && c.Business.EndHour == 0 {
		c.Business.StartHour = 9
		c.Business.EndHour = 18
	}
	if c.Business.Capacity <= 0 {
		c.Business.Capacity = 1
	}
	if c.Business.Timezone == "" {
		c.Business.Timezone = "America/Mexico_City"
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Citas"
	}
	if c.Google.EventDurationHours <= 0 {
		c.Google.EventDurationHours = 2
	}
	if c.Booking.RatePerSecond <= 0 {
		c.Booking.RatePerSecond = 5
	}
	if c.Booking.RateBurst <= 0 {
		c.Booking.RateBurst = 10
	}
	if c.Booking.TimeoutSeconds <= 0 {
		c.Booking.TimeoutSeconds = 10
	}
}

// Window returns the configured business-hours window.
func (c *Config) Window() slots.Window {
	return slots.Window{Start: c.Business.StartHour, End: c.Business.EndHour}
}

// TZ loads the configured timezone.
func (c *Config) TZ() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Business.Timezone, err)
	}
	return loc, nil
}

// EventDuration is the calendar event length for one appointment.
func (c *Config) EventDuration() time.Duration {
	return time.Duration(c.Google.EventDurationHours) * time.Hour
}

// GatewayTimeout bounds each external call issued by the coordinator
// and the aggregator.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Booking.TimeoutSeconds) * time.Second
}

// CacheTTL returns the availability cache TTL; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
