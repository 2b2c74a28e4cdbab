// Package deployer describes model servers: the services running a model
// version behind a prediction endpoint, and the deployers managing them.
package deployer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidConfig   = errors.New("invalid deployment config")
)

type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateError    State = "error"
	StateInactive State = "inactive"
)

type Status struct {
	State     State  `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// Service is a model server.
type Service struct {
	UUID          uuid.UUID `json:"uuid"`
	PipelineName  string    `json:"pipeline_name"`
	StepName      string    `json:"step_name"`
	ModelName     string    `json:"model_name"`
	ModelVersion  string    `json:"model_version"`
	PredictionURL string    `json:"prediction_url,omitempty"`
	Hostname      string    `json:"hostname,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Service) IsRunning() bool { return s.Status.State == StateRunning }

func (s *Service) IsFailed() bool { return s.Status.State == StateError }

// Predictor serves predictions for a batch of instances.
type Predictor interface {
	Predict(ctx context.Context, instances [][]float64) ([]float64, error)
}

// HealthChecker is implemented by predictors able to report their health.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Config describes what to deploy.
type Config struct {
	PipelineName string
	StepName     string
	ModelName    string
	ModelVersion string
}

func (c Config) Validate() error {
	if c.ModelName == "" {
		return errors.Wrap(ErrInvalidConfig, "model name is required")
	}

	return nil
}

// Query selects services. Empty fields match everything.
type Query struct {
	PipelineName string
	StepName     string
	ModelName    string
	// Running keeps only running services.
	Running bool
}

// Match reports whether s is selected by q.
func (q Query) Match(s *Service) bool {
	switch {
	case q.PipelineName != "" && q.PipelineName != s.PipelineName:
		return false
	case q.StepName != "" && q.StepName != s.StepName:
		return false
	case q.ModelName != "" && q.ModelName != s.ModelName:
		return false
	case q.Running && !s.IsRunning():
		return false
	}

	return true
}

// Deployer starts, finds and stops model servers.
type Deployer interface {
	Deploy(ctx context.Context, cfg Config, predictor Predictor) (*Service, error)
	FindModelServer(ctx context.Context, query Query) ([]*Service, error)
	Stop(ctx context.Context, id uuid.UUID) error
}
