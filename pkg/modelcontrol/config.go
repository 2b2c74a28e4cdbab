package modelcontrol

import (
	"strings"

	"github.com/pkg/errors"
)

// Stage is the lifecycle stage of a model version.
type Stage string

const (
	StageNone       Stage = "none"
	StageStaging    Stage = "staging"
	StageProduction Stage = "production"
	StageArchived   Stage = "archived"

	// LatestVersion resolves to the most recent version of a model.
	LatestVersion = "latest"
)

// ParseStage converts a string into a Stage.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(s)); st {
	case StageNone, StageStaging, StageProduction, StageArchived:
		return st, nil
	default:
		return "", errors.Wrapf(ErrInvalidStage, "%q", s)
	}
}

func isStageName(version string) bool {
	if strings.EqualFold(version, LatestVersion) {
		return true
	}
	_, err := ParseStage(version)

	return err == nil
}

// Config is the model configuration a step attaches to itself.
type Config struct {
	Name               string   `mapstructure:"name" yaml:"name"`
	Version            string   `mapstructure:"version" yaml:"version,omitempty"`
	VersionDescription string   `mapstructure:"version_description" yaml:"version_description,omitempty"`
	License            string   `mapstructure:"license" yaml:"license,omitempty"`
	Description        string   `mapstructure:"description" yaml:"description,omitempty"`
	Audience           string   `mapstructure:"audience" yaml:"audience,omitempty"`
	UseCases           string   `mapstructure:"use_cases" yaml:"use_cases,omitempty"`
	Limitations        string   `mapstructure:"limitations" yaml:"limitations,omitempty"`
	TradeOffs          string   `mapstructure:"trade_offs" yaml:"trade_offs,omitempty"`
	Ethics             string   `mapstructure:"ethics" yaml:"ethics,omitempty"`
	Tags               []string `mapstructure:"tags" yaml:"tags,omitempty"`

	// CreateNewVersion asks the registry for a fresh version instead of
	// resolving an existing one.
	CreateNewVersion bool `mapstructure:"create_new_version" yaml:"create_new_version"`
	// DeleteNewVersionOnFailure removes the version created for a run when the
	// run fails.
	DeleteNewVersionOnFailure bool `mapstructure:"delete_new_version_on_failure" yaml:"delete_new_version_on_failure"`
}

// Validate checks the config is usable by the registry.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(ErrInvalidConfig, "name must be set")
	}
	if c.CreateNewVersion && isStageName(c.Version) {
		return errors.Wrapf(ErrInvalidConfig,
			"cannot create a new version of %q named after the stage %q", c.Name, c.Version)
	}

	return nil
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Tags != nil {
		cp.Tags = append([]string(nil), c.Tags...)
	}

	return &cp
}

// merge folds other into c. Fields already set on c win; tags are unioned.
func (c *Config) merge(other *Config) {
	fillEmpty(&c.VersionDescription, other.VersionDescription)
	fillEmpty(&c.License, other.License)
	fillEmpty(&c.Description, other.Description)
	fillEmpty(&c.Audience, other.Audience)
	fillEmpty(&c.UseCases, other.UseCases)
	fillEmpty(&c.Limitations, other.Limitations)
	fillEmpty(&c.TradeOffs, other.TradeOffs)
	fillEmpty(&c.Ethics, other.Ethics)

	c.Tags = unionTags(c.Tags, other.Tags)
	c.CreateNewVersion = c.CreateNewVersion || other.CreateNewVersion
	c.DeleteNewVersionOnFailure = c.DeleteNewVersionOnFailure && other.DeleteNewVersionOnFailure
}

func fillEmpty(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

func unionTags(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	res := make([]string, 0, len(a)+len(b))
	for _, tags := range [][]string{a, b} {
		for _, t := range tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			res = append(res, t)
		}
	}

	return res
}
