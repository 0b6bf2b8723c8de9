package block

import "time"

// Store types.
const (
	TypeMemory = "memory"
	TypeFS     = "fs"
	TypeBadger = "badger"
	TypeS3     = "s3"
)

// Config selects and configures a block store backend. Only the section
// matching Type is read.
type Config struct {
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory fs badger s3" json:"type"`

	Memory MemoryConfig `mapstructure:"memory" yaml:"memory,omitempty" json:"memory,omitempty"`
	FS     FSConfig     `mapstructure:"fs" yaml:"fs,omitempty" json:"fs,omitempty"`
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger,omitempty" json:"badger,omitempty"`
	S3     S3Config     `mapstructure:"s3" yaml:"s3,omitempty" json:"s3,omitempty"`
}

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	// Delay is added to every operation. It simulates a slow target.
	Delay time.Duration `mapstructure:"delay" yaml:"delay,omitempty" json:"delay,omitempty"`
}

// FSConfig configures the filesystem store.
type FSConfig struct {
	// Path is the root directory for blocks. Created if missing.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// BadgerConfig configures the BadgerDB store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`

	// InMemory keeps the database in RAM.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory,omitempty" json:"in_memory,omitempty"`
}

// S3Config configures the S3 store.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region" yaml:"region,omitempty" json:"region,omitempty"`

	// Endpoint is the S3 endpoint URL for S3-compatible services.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// KeyPrefix is prepended to all block keys (e.g., "dittowatch/").
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`

	// AccessKeyID and SecretAccessKey set static credentials. When empty
	// the SDK's default credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}
