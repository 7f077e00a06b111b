package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules.
//
// Note: log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The three storage subdirectories must not collide, or sibling
	// globs in the item store would pick up cache artifacts.
	dirs := map[string]string{
		cfg.ItemsRoot(): "items_dir",
		cfg.UsersRoot(): "users_dir",
		cfg.CacheRoot(): "cache_dir",
	}
	if len(dirs) != 3 {
		return fmt.Errorf("storage: items_dir, users_dir and cache_dir must be distinct")
	}

	if cfg.Media.FetchRate == 0 && cfg.Media.FetchBurst > 0 {
		return fmt.Errorf("media: fetch_burst requires a non-zero fetch_rate")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
