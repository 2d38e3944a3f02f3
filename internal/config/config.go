package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string          `mapstructure:"mode"`
	Port       int             `mapstructure:"port"`
	StaticPath string          `mapstructure:"static_path"`
	ReadLimit  int64           `mapstructure:"read_limit"`
	PingPeriod time.Duration   `mapstructure:"ping_period"`
	Secret     string          `mapstructure:"secret"`
	Signature  SignatureConfig `mapstructure:"signature"`
	Session    SessionConfig   `mapstructure:"session"`
	Lifecycle  LifecycleConfig `mapstructure:"lifecycle"`
	Help       HelpConfig      `mapstructure:"help"`
	Admin      AdminConfig     `mapstructure:"admin"`
}

// SignatureConfig points at the external signing service.
type SignatureConfig struct {
	URL             string        `mapstructure:"url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	VideoWebRTCMode int           `mapstructure:"video_webrtc_mode"`
}

// SessionConfig holds fallbacks for absent page query parameters.
type SessionConfig struct {
	DefaultLeaveURL string `mapstructure:"default_leave_url"`
	DefaultRole     int    `mapstructure:"default_role"`
}

type LifecycleConfig struct {
	RefreshWindow time.Duration `mapstructure:"refresh_window"`
	SDKTimeout    time.Duration `mapstructure:"sdk_timeout"`
}

type HelpConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

// AdminConfig guards the tab status API. An empty password disables it.
type AdminConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")

	v.SetDefault("signature.url", "http://localhost:4000")
	v.SetDefault("signature.timeout", "10s")
	v.SetDefault("signature.video_webrtc_mode", 1)

	v.SetDefault("session.default_leave_url", "https://app.tethersupervision.com")
	v.SetDefault("session.default_role", 0)

	v.SetDefault("lifecycle.refresh_window", "60s")
	v.SetDefault("lifecycle.sdk_timeout", "30s")

	v.SetDefault("help.limit", 3)
	v.SetDefault("help.interval", "1m")

	v.SetDefault("admin.user", "admin")
	v.SetDefault("admin.password", "")
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("meet", pflag.ContinueOnError)
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("mode", "release", "gin mode: release|debug")
	fs.String("signature-url", "", "signature service endpoint")
	return fs
}

// Load merges defaults, config/config.<CONFIG_ENV>.yaml, MEET_* environment
// variables and command line flags, in increasing priority.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if err := v.BindPFlag("port", fs.Lookup("port")); err != nil {
		return nil, fmt.Errorf("bind port flag: %w", err)
	}
	if err := v.BindPFlag("mode", fs.Lookup("mode")); err != nil {
		return nil, fmt.Errorf("bind mode flag: %w", err)
	}
	if f := fs.Lookup("signature-url"); f.Changed {
		v.Set("signature.url", f.Value.String())
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Signature.URL == "" {
		return nil, fmt.Errorf("signature.url must be set")
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("signature_url", cfg.Signature.URL).
		Msg("config ready")
	return &cfg, nil
}
