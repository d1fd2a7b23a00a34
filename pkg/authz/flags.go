package authz

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Mode represents the global enforcement mode.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnforce  Mode = "enforce"
)

// FlagProvider supplies the current enforcement mode.
type FlagProvider interface {
	Mode() Mode
}

// StaticFlagProvider always reports the same mode.
type StaticFlagProvider Mode

func (s StaticFlagProvider) Mode() Mode {
	return ParseMode(string(s), ModeEnforce)
}

// FileFlagProvider reads the mode from a YAML file on every call so an
// operator can flip enforcement without a restart. The last good value is
// kept when the file becomes unreadable.
type FileFlagProvider struct {
	path     string
	fallback Mode
	lastMode Mode
	mu       sync.Mutex
}

func NewFileFlagProvider(path string, fallback Mode) *FileFlagProvider {
	return &FileFlagProvider{
		path:     path,
		fallback: ParseMode(string(fallback), ModeEnforce),
	}
}

func (p *FileFlagProvider) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastMode == "" {
		p.lastMode = p.fallback
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return p.lastMode
	}

	var cfg struct {
		Mode string `yaml:"mode"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return p.lastMode
	}
	p.lastMode = ParseMode(cfg.Mode, p.fallback)
	return p.lastMode
}

// ParseMode maps raw to a Mode, returning fallback for anything unknown.
func ParseMode(raw string, fallback Mode) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeDisabled:
		return ModeDisabled
	case ModeShadow:
		return ModeShadow
	case ModeEnforce:
		return ModeEnforce
	default:
		return fallback
	}
}
