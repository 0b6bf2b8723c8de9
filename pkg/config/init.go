package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoWatch Configuration File
#
# Each mirror is a block store probed on probe_interval. A mirror fails when
# more than violation_ratio of the samples in its window exceed latency_slo.
#
# Store types: memory, fs (fs.path), badger (badger.path or badger.in_memory),
# s3 (s3.bucket, s3.region, s3.endpoint, s3.force_path_style).
#
# Any key can be overridden from the environment, e.g.
#   DITTOWATCH_LOGGING_LEVEL=DEBUG
#
`

// InitConfig writes a sample configuration to the default location and
// returns its path. It refuses to overwrite an existing file unless force
// is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	data, err := sampleConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func sampleConfig() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(GetDefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}
