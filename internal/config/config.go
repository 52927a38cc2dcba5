package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendGoRedis = "go-redis"
	BackendRueidis = "rueidis"
	BackendMemory  = "memory"
)

type Config struct {
	Redis   RedisConfig   `mapstructure:"redis"`
	Lock    LockConfig    `mapstructure:"lock"`
	Locker  LockerConfig  `mapstructure:"locker"`
	Users   UsersConfig   `mapstructure:"users"`
	Push    PushConfig    `mapstructure:"push"`
	Census  CensusConfig  `mapstructure:"census"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type RedisConfig struct {
	Backend  string `mapstructure:"backend"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// ClientCache enables rueidis client side caching, which needs CLIENT TRACKING.
	ClientCache bool `mapstructure:"client-cache"`
}

type LockConfig struct {
	Retention            time.Duration `mapstructure:"retention"`
	WaitingListRetention time.Duration `mapstructure:"waiting-list-retention"`
}

type LockerConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	RetryInterval time.Duration `mapstructure:"retry-interval"`
	RetryLimit    int           `mapstructure:"retry-limit"`
}

type UsersConfig struct {
	Driver         string        `mapstructure:"driver"`
	DSN            string        `mapstructure:"dsn"`
	CacheRetention time.Duration `mapstructure:"cache-retention"`
}

type PushConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ChannelPrefix string `mapstructure:"channel-prefix"`
}

type CensusConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Frequency time.Duration `mapstructure:"frequency"`
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

type flagSpec struct {
	key   string
	value any
	usage string
}

var flags = []flagSpec{
	{"redis.backend", BackendGoRedis, "cache backend, one of: go-redis, rueidis, memory"},
	{"redis.address", "127.0.0.1:6379", "redis address"},
	{"redis.password", "", "redis password"},
	{"redis.db", 0, "redis database"},
	{"redis.client-cache", true, "enable client side caching (rueidis backend only)"},
	{"lock.retention", 5 * time.Minute, "how long a camera lock lives without being renewed"},
	{"lock.waiting-list-retention", 30 * time.Minute, "how long a waiting list lives after its last change, 0 keeps it until cleared"},
	{"locker.retention", 30 * time.Second, "retention of internal distributed locks"},
	{"locker.retry-interval", 100 * time.Millisecond, "retry interval while waiting for internal locks"},
	{"locker.retry-limit", 100, "maximum retries while waiting for internal locks"},
	{"users.driver", "sqlite3", "user directory driver, one of: sqlite3, postgres"},
	{"users.dsn", "file:users.db?cache=shared", "user directory data source name"},
	{"users.cache-retention", 10 * time.Minute, "how long user profiles are cached"},
	{"push.enabled", true, "publish push messages on redis, otherwise only log them"},
	{"push.channel-prefix", "camera-push", "prefix of the per-user push channels"},
	{"census.interval", time.Minute, "minimum time between two camera censuses"},
	{"census.timeout", 30 * time.Second, "timeout of a single census"},
	{"census.frequency", 10 * time.Second, "how often a replica checks whether a census is due"},
	{"metrics.port", 9090, "port of the prometheus endpoint"},
}

// Bind registers one flag per configuration key on fs and binds it to vip, so that
// precedence is flag, environment, config file, default.
func Bind(
	fs *pflag.FlagSet,
	vip *viper.Viper,
) error {
	for _, f := range flags {
		name := strings.ReplaceAll(f.key, ".", "-")
		switch v := f.value.(type) {
		case string:
			fs.String(name, v, f.usage)
		case int:
			fs.Int(name, v, f.usage)
		case bool:
			fs.Bool(name, v, f.usage)
		case time.Duration:
			fs.Duration(name, v, f.usage)
		default:
			return fmt.Errorf("unsupported default for '%s'", f.key)
		}
		vip.SetDefault(f.key, f.value)
		if err := vip.BindPFlag(f.key, fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// ReadIn reads the config file (explicit or assetlock.yaml in . and $HOME) and enables
// environment overrides such as REDIS_ADDRESS or LOCK_WAITING_LIST_RETENTION.
func ReadIn(
	vip *viper.Viper,
	file string,
) error {
	if file != "" {
		vip.SetConfigFile(file)
	} else {
		vip.SetConfigName("assetlock")
		vip.AddConfigPath(".")
		vip.AddConfigPath("$HOME")
	}

	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func Decode(
	vip *viper.Viper,
) (*Config, error) {
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	var cfg Config
	if err := vip.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Redis.Backend {
	case BackendGoRedis, BackendRueidis, BackendMemory:
	default:
		return fmt.Errorf("unknown redis backend '%s'", c.Redis.Backend)
	}
	if c.Lock.Retention <= 0 {
		return fmt.Errorf("lock retention must be positive, got %s", c.Lock.Retention)
	}
	return nil
}
