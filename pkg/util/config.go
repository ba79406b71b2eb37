package util

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/awooter/pkg"
	"github.com/spf13/viper"
)

type RouterConfig struct {
	PressureFactor      float64 `mapstructure:"pressure_factor" validate:"gt=0"`
	HistoryFactor       float64 `mapstructure:"history_factor" validate:"gte=0"`
	StallRounds         int     `mapstructure:"stall_rounds" validate:"gte=1"`
	StallWindows        int     `mapstructure:"stall_windows" validate:"gte=1"`
	MaxRounds           int     `mapstructure:"max_rounds" validate:"gte=0"`
	CriticalityExponent float64 `mapstructure:"criticality_exponent" validate:"gt=0"`
	CriticalityCap      float64 `mapstructure:"criticality_cap" validate:"gt=0,lte=1"`
	CriticalityFloor    float64 `mapstructure:"criticality_floor" validate:"gte=0,lte=1"`
}

type PartitionConfig struct {
	Depth               int     `mapstructure:"depth" validate:"gte=0,lte=6"`
	DistortionThreshold float64 `mapstructure:"distortion_threshold" validate:"gte=0,lte=100"`
	Bisect              bool    `mapstructure:"bisect"`
	Workers             int     `mapstructure:"workers" validate:"gte=1"`
}

type EngineConfig struct {
	Workers int `mapstructure:"workers" validate:"gte=1"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	WebsocketPort     int           `mapstructure:"websocket_port" validate:"gt=0,lte=65535,nefield=Port"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit         bool          `mapstructure:"rate_limit"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	MaxJobs           int64         `mapstructure:"max_jobs" validate:"gte=1"`
	WebsocketTimeout  time.Duration `mapstructure:"websocket_timeout" validate:"gte=0"`
}

type Config struct {
	Router    RouterConfig    `mapstructure:"router"`
	Partition PartitionConfig `mapstructure:"partition"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Server    ServerConfig    `mapstructure:"server"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("router.pressure_factor", pkg.DEFAULT_PRESSURE_FACTOR)
	v.SetDefault("router.history_factor", pkg.DEFAULT_HISTORY_FACTOR)
	v.SetDefault("router.stall_rounds", pkg.DEFAULT_STALL_ROUNDS)
	v.SetDefault("router.stall_windows", pkg.DEFAULT_STALL_WINDOWS)
	v.SetDefault("router.max_rounds", pkg.DEFAULT_MAX_ROUNDS)
	v.SetDefault("router.criticality_exponent", pkg.DEFAULT_CRITICALITY_EXPONENT)
	v.SetDefault("router.criticality_cap", pkg.DEFAULT_CRITICALITY_CAP)
	v.SetDefault("router.criticality_floor", pkg.DEFAULT_CRITICALITY_FLOOR)

	v.SetDefault("partition.depth", pkg.DEFAULT_PARTITION_DEPTH)
	v.SetDefault("partition.distortion_threshold", pkg.DEFAULT_DISTORTION_THRESHOLD)
	v.SetDefault("partition.bisect", true)
	v.SetDefault("partition.workers", runtime.GOMAXPROCS(0))

	v.SetDefault("engine.workers", runtime.GOMAXPROCS(0))

	v.SetDefault("server.port", pkg.DEFAULT_API_PORT)
	v.SetDefault("server.websocket_port", pkg.DEFAULT_WEBSOCKET_PORT)
	v.SetDefault("server.timeout", pkg.DEFAULT_API_TIMEOUT)
	v.SetDefault("server.rate_limit", false)
	v.SetDefault("server.requests_per_second", pkg.DEFAULT_REQUESTS_PER_SECOND)
	v.SetDefault("server.max_body_bytes", pkg.DEFAULT_MAX_BODY_BYTES)
	v.SetDefault("server.max_jobs", runtime.GOMAXPROCS(0))
	v.SetDefault("server.websocket_timeout", pkg.WEBSOCKET_WRITE_TIMEOUT)
}

// DefaultConfig returns the reference tuning without touching any config file.
func DefaultConfig() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := decodeConfig(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// ReadConfig loads config.yaml from path (if present) and AWOOTER_* environment overrides on top of the defaults.
func ReadConfig(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./data/")
	v.SetEnvPrefix("AWOOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
	}
	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, WrapErrorf(err, ErrBadParamInput, "decode config")
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return WrapErrorf(err, ErrBadParamInput, "invalid config")
	}
	return nil
}
