// Package config loads the ambient settings cmd/lox threads into VM
// construction — stack size, the REPL prompt string, and whether to show
// that prompt at all. None of it changes Lox language semantics; it is pure CLI
// ergonomics, read once from the environment at process startup.
package config

import (
	"github.com/caarlos0/env/v6"
)

// VMConfig mirrors the teacher's own VMConfig{RootPath string} pattern
// (a small struct threaded through NewWithConfig) generalised to load its
// fields from LOX_* environment variables instead of being built by hand.
type VMConfig struct {
	// StackSize overrides the VM's default value-stack capacity. vm.NewWithStackSize
	// treats this as a floor, not a ceiling — it is raised to vm.DefaultStackSize
	// (FramesMax × 256 = 16384) if set any smaller, so the default here just
	// documents that spec-mandated floor rather than being able to shrink it.
	StackSize int `env:"LOX_STACK_SIZE" envDefault:"16384"`
	// Prompt is printed before each REPL line when stdin is a terminal.
	Prompt string `env:"LOX_PROMPT" envDefault:">>> "`
	// NoColor, when set, turns the REPL prompt off even on a terminal. The
	// REPL banner and error output carry no ANSI styling either way.
	NoColor bool `env:"LOX_NO_COLOR" envDefault:"false"`
}

// Load reads a VMConfig from the process environment, applying the
// struct's envDefault tags for anything unset.
func Load() (VMConfig, error) {
	cfg := VMConfig{}
	if err := env.Parse(&cfg); err != nil {
		return VMConfig{}, err
	}
	return cfg, nil
}
