package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type serverFileConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
		Version       string   `json:"version"`
	} `json:"app"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db"`
	} `json:"storage"`

	Server struct {
		HTTPAddress      string   `json:"http_address"`
		RequestTimeout   Duration `json:"request_timeout"`
		PullDefaultLimit int      `json:"pull_default_limit"`
		PullMaxLimit     int      `json:"pull_max_limit"`
	} `json:"server"`
}

type clientFileConfig struct {
	Adapter struct {
		HTTPAddress      string   `json:"http_address"`
		RequestTimeout   Duration `json:"request_timeout"`
		RetryCount       int      `json:"retry_count"`
		RetryWaitTime    Duration `json:"retry_wait_time"`
		RetryMaxWaitTime Duration `json:"retry_max_wait_time"`
	} `json:"adapter"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db"`
		FallbackPath     string `json:"fallback_path"`
		FallbackCapacity int    `json:"fallback_capacity"`
	} `json:"storage"`

	Workers struct {
		SyncInterval  Duration `json:"sync_interval"`
		Debounce      Duration `json:"debounce"`
		PushBatchSize int      `json:"push_batch_size"`
		PullPageSize  int      `json:"pull_page_size"`
	} `json:"workers"`

	Auth struct {
		Token      string `json:"token"`
		Passphrase string `json:"passphrase"`
		SaltFile   string `json:"salt_file"`
	} `json:"auth"`

	Log struct {
		File  string `json:"file"`
		Level string `json:"level"`
	} `json:"log"`
}

func parseServerFile(path string) (*StructuredConfig, error) {
	var fileCfg serverFileConfig
	if err := decodeConfigFile(path, &fileCfg); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			TokenSignKey:  fileCfg.App.TokenSignKey,
			TokenIssuer:   fileCfg.App.TokenIssuer,
			TokenDuration: time.Duration(fileCfg.App.TokenDuration),
			Version:       fileCfg.App.Version,
		},
		Storage: Storage{
			DB: DB{DSN: fileCfg.Storage.DB.DSN},
		},
		Server: Server{
			HTTPAddress:      fileCfg.Server.HTTPAddress,
			RequestTimeout:   time.Duration(fileCfg.Server.RequestTimeout),
			PullDefaultLimit: fileCfg.Server.PullDefaultLimit,
			PullMaxLimit:     fileCfg.Server.PullMaxLimit,
		},
	}, nil
}

func parseClientFile(path string) (*ClientConfig, error) {
	var fileCfg clientFileConfig
	if err := decodeConfigFile(path, &fileCfg); err != nil {
		return nil, err
	}

	return &ClientConfig{
		Adapter: ClientAdapter{
			HTTPAddress:      fileCfg.Adapter.HTTPAddress,
			RequestTimeout:   time.Duration(fileCfg.Adapter.RequestTimeout),
			RetryCount:       fileCfg.Adapter.RetryCount,
			RetryWaitTime:    time.Duration(fileCfg.Adapter.RetryWaitTime),
			RetryMaxWaitTime: time.Duration(fileCfg.Adapter.RetryMaxWaitTime),
		},
		Storage: ClientStorage{
			DB:               ClientDB{DSN: fileCfg.Storage.DB.DSN},
			FallbackPath:     fileCfg.Storage.FallbackPath,
			FallbackCapacity: fileCfg.Storage.FallbackCapacity,
		},
		Workers: ClientWorkers{
			SyncInterval:  time.Duration(fileCfg.Workers.SyncInterval),
			Debounce:      time.Duration(fileCfg.Workers.Debounce),
			PushBatchSize: fileCfg.Workers.PushBatchSize,
			PullPageSize:  fileCfg.Workers.PullPageSize,
		},
		Auth: ClientAuth{
			Token:      fileCfg.Auth.Token,
			Passphrase: fileCfg.Auth.Passphrase,
			SaltFile:   fileCfg.Auth.SaltFile,
		},
		Log: ClientLog{
			File:  fileCfg.Log.File,
			Level: fileCfg.Log.Level,
		},
	}, nil
}

// decodeConfigFile reads a JSON or YAML (.yaml/.yml) file into dst. YAML is
// converted to JSON first so both formats share the same struct tags.
func decodeConfigFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading a config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("error decoding yaml configs: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return fmt.Errorf("error converting yaml configs: %w", err)
		}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error decoding json configs: %w", err)
	}

	return nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s" as well as from nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
