package authz

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/termstore/pkg/configuration"
)

// Config captures all inputs necessary to initialize the Casbin enforcer.
// Leaving both ModelPath and PolicyPath empty selects the embedded defaults.
type Config struct {
	ModelPath    string
	PolicyPath   string
	FlagPath     string
	FlagMode     Mode
	Logger       *logrus.Logger
	FlagProvider FlagProvider
}

func (c Config) validate() error {
	if (c.ModelPath == "") != (c.PolicyPath == "") {
		return configError("model path and policy path must be set together")
	}
	return nil
}

func (c Config) embedded() bool {
	return c.ModelPath == "" && c.PolicyPath == ""
}

func (c Config) normalized() Config {
	if !c.embedded() {
		c.ModelPath = filepath.Clean(c.ModelPath)
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	if c.FlagPath != "" {
		c.FlagPath = filepath.Clean(c.FlagPath)
	}
	c.FlagMode = ParseMode(string(c.FlagMode), ModeEnforce)
	return c
}

func (c Config) flagProvider() FlagProvider {
	switch {
	case c.FlagProvider != nil:
		return c.FlagProvider
	case c.FlagPath != "":
		return NewFileFlagProvider(c.FlagPath, c.FlagMode)
	default:
		return StaticFlagProvider(c.FlagMode)
	}
}

// DefaultConfig builds a Config from the given configuration.
func DefaultConfig(cfg *configuration.Configuration) Config {
	return Config{
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
		FlagPath:   cfg.Authz.FlagConfigPath,
		FlagMode:   Mode(cfg.Authz.Mode),
		Logger:     cfg.Logger(),
	}
}
