package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// configBuilder collects partial configs from several sources and merges them
// in a fixed priority order: defaults, file, then every other source in the
// order it was added. A later source overrides non-zero fields only.
type configBuilder[T any] struct {
	defaults *T
	file     *T
	configs  []*T
	err      error
}

func newConfigBuilder[T any]() *configBuilder[T] {
	return &configBuilder[T]{
		configs: make([]*T, 0, 4),
	}
}

func (b *configBuilder[T]) build() (*T, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	ordered := make([]*T, 0, len(b.configs)+2)
	if b.defaults != nil {
		ordered = append(ordered, b.defaults)
	}
	if b.file != nil {
		ordered = append(ordered, b.file)
	}
	ordered = append(ordered, b.configs...)

	config := new(T)
	for _, cfg := range ordered {
		if err := mergo.Merge(config, cfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}

	return config, nil
}

func (b *configBuilder[T]) withDefaults(defaults *T) *configBuilder[T] {
	b.defaults = defaults
	return b
}

func (b *configBuilder[T]) withDotEnv(paths ...string) *configBuilder[T] {
	if err := loadDotEnv(paths...); err != nil {
		b.err = errors.Join(b.err, err)
	}
	return b
}

func (b *configBuilder[T]) withEnv() *configBuilder[T] {
	envCfg := new(T)
	if err := parseEnv(envCfg); err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}

	b.configs = append(b.configs, envCfg)
	return b
}

func (b *configBuilder[T]) with(cfg *T) *configBuilder[T] {
	if cfg != nil {
		b.configs = append(b.configs, cfg)
	}
	return b
}

// withFile resolves the config file path from the sources added so far (the
// last non-empty one wins) and parses the file when a path is set.
func (b *configBuilder[T]) withFile(pathOf func(*T) string, parse func(string) (*T, error)) *configBuilder[T] {
	var path string
	for _, cfg := range b.configs {
		if p := pathOf(cfg); p != "" {
			path = p
		}
	}

	if path == "" {
		return b
	}

	fileCfg, err := parse(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.file = fileCfg

	return b
}
