package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/linkcheck-service/internal/admission"
)

const (
	// DateLayout is the accepted format of the cutoff date.
	DateLayout = "2006-01-02"

	envPrefix = "LINKCHECK"
)

var (
	ErrMissingDate   = errors.New("input.date is required")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Input     InputConfig     `mapstructure:"input"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Name           string        `mapstructure:"name"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TableName      string        `mapstructure:"tablename"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	SQLiteMaxConns int           `mapstructure:"sqlite_max_conns"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type InputConfig struct {
	Date      string `mapstructure:"date"`
	BatchSize int    `mapstructure:"batch_size"`
}

type SchedulerConfig struct {
	Floor               int           `mapstructure:"floor"`
	Ceiling             int           `mapstructure:"ceiling"`
	Backlog             int           `mapstructure:"backlog"`
	Increment           int           `mapstructure:"increment"`
	Tick                time.Duration `mapstructure:"tick"`
	Policy              string        `mapstructure:"policy"`
	DecreaseRatio       float64       `mapstructure:"decrease_ratio"`
	IncrementsPerSecond float64       `mapstructure:"increments_per_second"`
}

type ProbeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type TelemetryConfig struct {
	Source     string        `mapstructure:"source"`
	Interval   time.Duration `mapstructure:"interval"`
	ProcfsPath string        `mapstructure:"procfs_path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file (INI by default, any format
// viper understands by extension) and LINKCHECK_* environment variables.
// An empty path falls back to ./config.ini and tolerates its absence.
func Load(path string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = "config.ini"
	}
	if err := readFile(v, path); err != nil {
		if explicit || !isNotFound(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func newViper() (*viper.Viper, error) {
	registry := viper.NewCodecRegistry()
	if err := registry.RegisterCodec("ini", iniCodec{}); err != nil {
		return nil, err
	}
	v := viper.NewWithOptions(viper.WithCodecRegistry(registry))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// readFile feeds INI files through the registered codec and leaves every
// other extension to viper.
func readFile(v *viper.Viper, path string) error {
	ext := strings.TrimPrefix(strings.ToLower(extension(path)), ".")
	if ext != "" && ext != "ini" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	v.SetConfigType("ini")
	return v.ReadConfig(bytes.NewReader(b))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "postgresql")
	v.SetDefault("database.username", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.tablename", "account")
	v.SetDefault("database.sqlite_path", "linkcheck.db")
	v.SetDefault("database.sqlite_max_conns", 8)
	v.SetDefault("database.acquire_timeout", "3s")

	v.SetDefault("input.date", "")
	v.SetDefault("input.batch_size", 2000)

	v.SetDefault("scheduler.floor", 10)
	v.SetDefault("scheduler.ceiling", 4000)
	v.SetDefault("scheduler.backlog", 5000)
	v.SetDefault("scheduler.increment", 20)
	v.SetDefault("scheduler.tick", "100ms")
	v.SetDefault("scheduler.policy", admission.PolicyAdditive)
	v.SetDefault("scheduler.decrease_ratio", 0.5)
	v.SetDefault("scheduler.increments_per_second", 5.0)

	v.SetDefault("probe.timeout", "6s")
	v.SetDefault("probe.user_agent", "linkcheck/1.0")

	v.SetDefault("telemetry.source", "pcap")
	v.SetDefault("telemetry.interval", "50ms")
	v.SetDefault("telemetry.procfs_path", "/proc")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stats_ttl", "168h")

	v.SetDefault("server.addr", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the fields the run cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Input.Date) == "" {
		errs = append(errs, ErrMissingDate)
	} else if _, err := c.Cutoff(); err != nil {
		errs = append(errs, err)
	}
	if c.Input.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: input.batch_size must be positive", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.Database.TableName) == "" {
		errs = append(errs, fmt.Errorf("%w: database.tablename is required", ErrInvalidConfig))
	}
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.SQLiteMaxConns <= 0 {
			errs = append(errs, fmt.Errorf("%w: database.sqlite_max_conns must be positive", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown database.driver %q", ErrInvalidConfig, c.Database.Driver))
	}
	if c.Database.AcquireTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: database.acquire_timeout must be positive", ErrInvalidConfig))
	}

	s := c.Scheduler
	if s.Floor <= 0 || s.Ceiling <= 0 || s.Floor > s.Ceiling {
		errs = append(errs, fmt.Errorf("%w: scheduler requires 0 < floor <= ceiling (got %d, %d)", ErrInvalidConfig, s.Floor, s.Ceiling))
	}
	if s.Backlog <= 0 || s.Increment <= 0 || s.Tick <= 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler backlog, increment and tick must be positive", ErrInvalidConfig))
	}
	switch s.Policy {
	case admission.PolicyAdditive, admission.PolicyTokenBucket:
	case admission.PolicyAIAD:
		if s.DecreaseRatio <= 0 || s.DecreaseRatio >= 1 {
			errs = append(errs, fmt.Errorf("%w: scheduler.decrease_ratio must be in (0, 1)", ErrInvalidConfig))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: unknown scheduler.policy %q", ErrInvalidConfig, s.Policy))
	}
	if s.Policy == admission.PolicyTokenBucket && s.IncrementsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: scheduler.increments_per_second must be positive", ErrInvalidConfig))
	}

	if c.Probe.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: probe.timeout must be positive", ErrInvalidConfig))
	}
	switch c.Telemetry.Source {
	case "pcap", "procfs":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown telemetry.source %q", ErrInvalidConfig, c.Telemetry.Source))
	}
	if c.Telemetry.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%w: telemetry.interval must be positive", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// Cutoff parses input.date as a UTC midnight.
func (c *Config) Cutoff() (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(c.Input.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: input.date %q is not YYYY-MM-DD", ErrInvalidConfig, c.Input.Date)
	}
	return t, nil
}

// PostgresDSN builds a connection URL from the database section.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.Username, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func extension(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
