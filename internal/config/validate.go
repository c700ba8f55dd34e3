package config

// Validate checks that all configuration values are usable and returns the
// first error encountered, or nil if valid.
func Validate(cfg Config) error {
	if cfg.Root == "" {
		return ErrEmptyRoot
	}

	if cfg.LockTimeout < 0 {
		return ErrInvalidLockTimeout
	}

	if _, err := cfg.KDFParams(); err != nil {
		return err
	}

	if _, err := cfg.Level(); err != nil {
		return err
	}

	return nil
}
