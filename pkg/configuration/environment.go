package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/termstore/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist, looking in the working directory
// first and then in the nearest directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	root := moduleRoot()
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		switch {
		case fs.FileExists(file):
			existingFiles = append(existingFiles, file)
		case root != "" && fs.FileExists(filepath.Join(root, file)):
			existingFiles = append(existingFiles, filepath.Join(root, file))
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"termstore"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type RedisOptions struct {
	URL          string        `env:"REDIS_URL"`
	CacheEnabled bool          `env:"TERMINOLOGY_CACHE_ENABLED" envDefault:"false"`
	CacheTTL     time.Duration `env:"TERMINOLOGY_CACHE_TTL" envDefault:"5m"`
}

func (r *RedisOptions) Validate() error {
	if r.CacheEnabled && strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("TERMINOLOGY_CACHE_ENABLED=true requires REDIS_URL")
	}
	if r.CacheTTL <= 0 {
		return fmt.Errorf("TERMINOLOGY_CACHE_TTL must be positive, got %s", r.CacheTTL)
	}
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type AuthzOptions struct {
	ModelPath      string `env:"AUTHZ_MODEL_PATH"`
	PolicyPath     string `env:"AUTHZ_POLICY_PATH"`
	FlagConfigPath string `env:"AUTHZ_FLAG_CONFIG"`
	Mode           string `env:"AUTHZ_MODE" envDefault:"enforce"`
}

type ImportOptions struct {
	MaxBatchSize     int           `env:"TERMINOLOGY_MAX_BATCH_SIZE" envDefault:"10000"`
	DedupeProperties bool          `env:"TERMINOLOGY_DEDUPE_PROPERTIES" envDefault:"false"`
	StatementTimeout time.Duration `env:"TERMINOLOGY_STATEMENT_TIMEOUT" envDefault:"0s"`
}

func (i *ImportOptions) Validate() error {
	if i.MaxBatchSize <= 0 {
		return fmt.Errorf("TERMINOLOGY_MAX_BATCH_SIZE must be positive, got %d", i.MaxBatchSize)
	}
	if i.StatementTimeout < 0 {
		return fmt.Errorf("TERMINOLOGY_STATEMENT_TIMEOUT must not be negative, got %s", i.StatementTimeout)
	}
	return nil
}

type Configuration struct {
	Database   DatabaseOptions
	Redis      RedisOptions
	Prometheus PrometheusOptions
	Authz      AuthzOptions
	Import     ImportOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load builds a fresh configuration from the given env files and the process
// environment, bypassing the singleton.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis configuration error: %w", err)
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	if err := c.validateAuthz(); err != nil {
		return err
	}

	c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validateAuthz() error {
	mode := strings.ToLower(strings.TrimSpace(c.Authz.Mode))
	if mode == "" {
		mode = "enforce"
	}
	switch mode {
	case "disabled", "shadow", "enforce":
	default:
		return fmt.Errorf("invalid AUTHZ_MODE=%q (expected disabled|shadow|enforce)", c.Authz.Mode)
	}
	if (c.Authz.ModelPath == "") != (c.Authz.PolicyPath == "") {
		return fmt.Errorf("AUTHZ_MODEL_PATH and AUTHZ_POLICY_PATH must be set together")
	}
	if mode == "disabled" && c.GoAppEnvironment == Production {
		return fmt.Errorf("AUTHZ_MODE=disabled is not allowed when GO_APP_ENV=%s", Production)
	}
	c.Authz.Mode = mode
	return nil
}
