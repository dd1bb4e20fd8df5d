package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT" validate:"required"`
	PostgresURL    string `mapstructure:"POSTGRES_URL"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	JWTSecret      string `mapstructure:"JWT_SECRET" validate:"required"`
	HistoryBackend string `mapstructure:"HISTORY_BACKEND" validate:"oneof=redis postgres"`

	APIBaseURL       string `mapstructure:"API_BASE_URL" validate:"required,url"`
	APISubdomain     string `mapstructure:"API_SUBDOMAIN" validate:"required"`
	APIAppOS         string `mapstructure:"API_APP_OS"`
	APIAppUser       string `mapstructure:"API_APP_USER"`
	APIAppPassword   string `mapstructure:"API_APP_PASSWORD"`
	APIBasicUser     string `mapstructure:"API_BASIC_USER"`
	APIBasicPassword string `mapstructure:"API_BASIC_PASSWORD"`
	APITimeoutMS     int    `mapstructure:"API_TIMEOUT_MS" validate:"gt=0"`

	GeocoderURL       string `mapstructure:"GEOCODER_URL" validate:"omitempty,url"`
	GeocoderUserAgent string `mapstructure:"GEOCODER_USER_AGENT"`

	FixFile         string  `mapstructure:"FIX_FILE"`
	FixTimeoutMS    int     `mapstructure:"FIX_TIMEOUT_MS" validate:"gt=0"`
	FixMaxAgeMS     int     `mapstructure:"FIX_MAX_AGE_MS" validate:"gte=0"`
	StaticLatitude  float64 `mapstructure:"STATIC_LATITUDE" validate:"gte=-90,lte=90"`
	StaticLongitude float64 `mapstructure:"STATIC_LONGITUDE" validate:"gte=-180,lte=180"`

	TrackingIntervalMS int  `mapstructure:"TRACKING_INTERVAL_MS" validate:"gt=0"`
	TrackingAutostart  bool `mapstructure:"TRACKING_AUTOSTART"`
}

func Load() Config {
	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", "127.0.0.1:8787")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("HISTORY_BACKEND", "redis")

	viper.SetDefault("API_BASE_URL", "http://app.lazyledgers.com")
	viper.SetDefault("API_SUBDOMAIN", "qtech.in")
	viper.SetDefault("API_APP_OS", "web")
	viper.SetDefault("API_APP_USER", "")
	viper.SetDefault("API_APP_PASSWORD", "")
	viper.SetDefault("API_BASIC_USER", "")
	viper.SetDefault("API_BASIC_PASSWORD", "")
	viper.SetDefault("API_TIMEOUT_MS", 10000)

	viper.SetDefault("GEOCODER_URL", "")
	viper.SetDefault("GEOCODER_USER_AGENT", "employee-tracker-agent")

	viper.SetDefault("FIX_FILE", "")
	viper.SetDefault("FIX_TIMEOUT_MS", 10000)
	viper.SetDefault("FIX_MAX_AGE_MS", 60000)
	viper.SetDefault("STATIC_LATITUDE", 37.7749)
	viper.SetDefault("STATIC_LONGITUDE", -122.4194)

	viper.SetDefault("TRACKING_INTERVAL_MS", 30000)
	viper.SetDefault("TRACKING_AUTOSTART", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// Validate reports the first invalid field of cfg.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
