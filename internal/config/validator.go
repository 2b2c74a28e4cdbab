package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single invalid configuration value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}

	return sb.String()
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func ValidLogFormats() []string {
	return []string{"json", "text"}
}

func ValidArtifactKinds() []string {
	return []string{ArtifactLocal, ArtifactS3}
}

// Validate returns every invalid value of the configuration.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "must be one of " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: "must be one of " + strings.Join(ValidLogFormats(), ", "),
		})
	}

	switch c.Artifacts.Kind {
	case ArtifactLocal:
		if c.Artifacts.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "artifacts.path",
				Value:   c.Artifacts.Path,
				Message: "is required for the local artifact store",
			})
		}
	case ArtifactS3:
		if c.Artifacts.S3.Endpoint == "" {
			errs = append(errs, ValidationError{
				Field:   "artifacts.s3.endpoint",
				Value:   c.Artifacts.S3.Endpoint,
				Message: "is required for the s3 artifact store",
			})
		}
		if c.Artifacts.S3.Bucket == "" {
			errs = append(errs, ValidationError{
				Field:   "artifacts.s3.bucket",
				Value:   c.Artifacts.S3.Bucket,
				Message: "is required for the s3 artifact store",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "artifacts.kind",
			Value:   c.Artifacts.Kind,
			Message: "must be one of " + strings.Join(ValidArtifactKinds(), ", "),
		})
	}

	if c.Serving.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "serving.addr",
			Value:   c.Serving.Addr,
			Message: "is required",
		})
	}

	return errs
}
