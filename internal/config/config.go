// Package config loads environment variables into tagged structs.
//
// The first call loads a .env file from the working directory if one exists,
// variables already present in the environment win over the file.
// Each configuration type is parsed once and cached:
//
//	type RelayConfig struct {
//		Backlog int `env:"RELAY_BACKLOG" envDefault:"10"`
//	}
//
//	var cfg RelayConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	dotenvErr  error

	mu    sync.Mutex
	cache = map[reflect.Type]any{}
)

// Load parses environment into cfg, which must be a non-nil pointer to struct.
// Subsequent calls for the same type copy the cached value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config: nil destination")
	}
	dotenvOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			dotenvErr = fmt.Errorf("config: load .env: %w", err)
		}
	})
	if dotenvErr != nil {
		return dotenvErr
	}

	key := reflect.TypeOf(cfg).Elem()
	mu.Lock()
	defer mu.Unlock()
	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		return nil
	}
	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	cache[key] = parsed
	*cfg = parsed
	return nil
}

// MustLoad is like Load but panics on failure, useful at startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset drops cached values. Intended for tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[reflect.Type]any{}
}
