package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MKhiriev/go-health-keeper/internal/crypto"
)

// loadOrCreateSalt reads the base64 salt stored at path, creating it on first
// use. An empty path selects the legacy static salt by returning nil.
func loadOrCreateSalt(path string, envelope crypto.Envelope) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(salt) == 0 {
			return nil, fmt.Errorf("salt file %s is corrupt", path)
		}
		return salt, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read salt file: %w", err)
	}

	salt, err := envelope.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create salt dir: %w", err)
		}
	}
	if err = os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(salt)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write salt file: %w", err)
	}
	return salt, nil
}
