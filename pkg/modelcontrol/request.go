package modelcontrol

import "github.com/pkg/errors"

// Requester identifies the pipeline and step that asked for a model version.
type Requester struct {
	Source string `yaml:"source"`
	Name   string `yaml:"name"`
}

func (r Requester) String() string {
	return r.Source + "::" + r.Name
}

// NewVersionRequest collects every requester of a new version of one model.
//
// The first config passed to Update becomes the canonical config. Every later
// config must carry the same Version; its other fields are merged into the
// canonical one.
type NewVersionRequest struct {
	Requesters []Requester
	config     *Config
}

// Config returns the canonical config.
func (r *NewVersionRequest) Config() (*Config, error) {
	if r.config == nil {
		return nil, ErrConfigNotSet
	}

	return r.config, nil
}

// Update merges cfg into the request on behalf of requester.
//
// A config whose version differs from the canonical one is rejected and leaves
// the request untouched: the requester is not recorded.
func (r *NewVersionRequest) Update(cfg *Config, requester Requester) error {
	if cfg == nil {
		return errors.Wrapf(ErrNilConfig, "requester %s", requester)
	}

	if r.config != nil && r.config.Version != cfg.Version {
		return errors.Wrapf(ErrVersionMismatch,
			"a mismatch of version name in model configurations provided for %q detected "+
				"(%q requested by %s, %q already requested by %v); since a new model version is "+
				"requested for this model, all version names must match or be left empty",
			cfg.Name, cfg.Version, requester, r.config.Version, r.Requesters)
	}

	if r.config == nil {
		r.config = cfg.Clone()
	}
	r.config.merge(cfg)
	r.Requesters = append(r.Requesters, requester)

	return nil
}
