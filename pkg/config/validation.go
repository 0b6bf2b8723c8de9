package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittowatch/internal/telemetry"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration after defaults have been applied.
//
// Field rules come from the validate struct tags; cross-field rules (store
// sections, window sizing, profile types) are checked here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Telemetry.Profiling.Enabled {
		if err := telemetry.ValidateProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("telemetry.profiling.profile_types: %w", err)
		}
	}

	if err := validateWatcher("watcher", cfg.Watcher); err != nil {
		return err
	}
	for i, m := range cfg.Mirrors {
		field := fmt.Sprintf("mirrors[%d]", i)
		if err := validateStore(field+".store", m.Store); err != nil {
			return err
		}
		if err := validateWatcher(field+".watcher", cfg.Watcher.Merge(m.Watcher)); err != nil {
			return err
		}
		if m.ProbeTimeout > 0 && m.ProbeTimeout <= m.LatencySLO {
			return fmt.Errorf("%s: probe_timeout (%s) must exceed latency_slo (%s)", field, m.ProbeTimeout, m.LatencySLO)
		}
		if m.ProbeSize.Int() > block.MaxBlockSize {
			return fmt.Errorf("%s: probe_size %s exceeds %d bytes", field, m.ProbeSize, block.MaxBlockSize)
		}
	}
	return nil
}

func validateWatcher(field string, w WatcherConfig) error {
	if w.Interval > 0 && w.Window > 0 && w.Window < w.Interval {
		return fmt.Errorf("%s: window (%s) is shorter than interval (%s)", field, w.Window, w.Interval)
	}
	if w.MaxSamples > 0 && w.MaxSamples < w.MinSamples {
		return fmt.Errorf("%s: max_samples (%d) is below min_samples (%d)", field, w.MaxSamples, w.MinSamples)
	}
	return nil
}

func validateStore(field string, s block.Config) error {
	switch s.Type {
	case block.TypeFS:
		if s.FS.Path == "" {
			return fmt.Errorf("%s.fs.path is required", field)
		}
	case block.TypeBadger:
		if s.Badger.Path == "" && !s.Badger.InMemory {
			return fmt.Errorf("%s.badger: path is required unless in_memory is set", field)
		}
	case block.TypeS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("%s.s3.bucket is required", field)
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			return fmt.Errorf("%s.s3: access_key_id and secret_access_key must be set together", field)
		}
	}
	return nil
}

// formatValidationErrors renders validator errors as "field: rule" lines
// using the struct namespace, e.g. "Config.Logging.Level: oneof".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}
