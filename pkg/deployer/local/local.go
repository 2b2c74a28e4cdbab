// Package local deploys models behind an HTTP prediction server running in
// the current process.
package local

import (
	"context"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/pkg/deployer"
)

var ErrAlreadyStarted = errors.New("server already started")

type entry struct {
	service   *deployer.Service
	predictor deployer.Predictor
}

// Deployer serves every deployed model from one HTTP server. A model has at
// most one service: deploying it again replaces the previous one.
type Deployer struct {
	addr     string
	hostname string
	logger   *logging.Logger
	router   chi.Router
	now      func() time.Time

	mu       sync.RWMutex
	services map[string]*entry
	baseURL  string
	server   *http.Server
	stopped  bool
}

// New returns a deployer that will listen on addr once started.
func New(addr string, logger *logging.Logger) *Deployer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	d := &Deployer{
		addr:     addr,
		hostname: hostname,
		logger:   logger,
		now:      time.Now,
		services: make(map[string]*entry),
	}
	d.router = d.routes()

	return d
}

// Handler returns the HTTP handler of the prediction server.
func (d *Deployer) Handler() http.Handler {
	return d.router
}

// Start listens on the configured address and serves in the background.
// Pending services are checked and become running.
func (d *Deployer) Start(ctx context.Context) error {
	err := d.listen(ctx)
	if err != nil {
		return err
	}
	d.refreshAll(ctx)
	d.logger.Info("prediction server listening", "url", d.URL())

	return nil
}

func (d *Deployer) listen(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.server != nil {
		return ErrAlreadyStarted
	}

	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", d.addr)
	if err != nil {
		return errors.Wrapf(err, "unable to listen on %s", d.addr)
	}

	d.server = &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.baseURL = "http://" + listener.Addr().String()
	d.stopped = false

	go func(server *http.Server) {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("prediction server stopped", "error", err.Error())
		}
	}(d.server)

	return nil
}

// URL returns the base URL of the server, empty until started.
func (d *Deployer) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.baseURL
}

// Shutdown stops the server. Every service becomes inactive.
func (d *Deployer) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	server := d.server
	d.server = nil
	d.baseURL = ""
	d.stopped = true
	for _, e := range d.services {
		e.service.Status = deployer.Status{State: deployer.StateInactive}
		e.service.PredictionURL = ""
	}
	d.mu.Unlock()

	if server == nil {
		return nil
	}
	// in-flight requests take the lock, it must be released before waiting on them.
	err := server.Shutdown(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to shut down prediction server")
	}

	return nil
}

// serverState is what the status of a service depends on besides its health.
type serverState struct {
	baseURL string
	started bool
	stopped bool
}

// state must be called with the lock held.
func (d *Deployer) state() serverState {
	return serverState{baseURL: d.baseURL, started: d.server != nil, stopped: d.stopped}
}

// checkStatus computes the status of a service. It runs without the lock:
// health checks can be slow.
func checkStatus(ctx context.Context, st serverState, predictor deployer.Predictor) deployer.Status {
	switch {
	case st.started:
	case st.stopped:
		return deployer.Status{State: deployer.StateInactive}
	default:
		return deployer.Status{State: deployer.StatePending}
	}

	if checker, ok := predictor.(deployer.HealthChecker); ok {
		err := checker.Healthy(ctx)
		if err != nil {
			return deployer.Status{State: deployer.StateError, LastError: err.Error()}
		}
	}

	return deployer.Status{State: deployer.StateRunning}
}

// apply sets a status computed for st on svc. Must be called with the lock held.
func apply(svc *deployer.Service, st serverState, status deployer.Status) {
	svc.Status = status
	svc.PredictionURL = ""
	if st.started {
		svc.PredictionURL = st.baseURL + "/v1/models/" + svc.ModelName + "/predict"
	}
}

// refreshAll checks every service and updates the ones that are still
// deployed, as long as the server did not start or stop meanwhile.
func (d *Deployer) refreshAll(ctx context.Context) {
	d.mu.RLock()
	st := d.state()
	entries := make([]*entry, 0, len(d.services))
	for _, e := range d.services {
		entries = append(entries, e)
	}
	d.mu.RUnlock()

	statuses := make([]deployer.Status, len(entries))
	for i, e := range entries {
		statuses[i] = checkStatus(ctx, st, e.predictor)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state() != st {
		return
	}
	for i, e := range entries {
		if d.services[e.service.ModelName] != e {
			continue
		}
		apply(e.service, st, statuses[i])
	}
}

func (d *Deployer) Deploy(ctx context.Context, cfg deployer.Config, predictor deployer.Predictor) (*deployer.Service, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if predictor == nil {
		return nil, errors.Wrap(deployer.ErrInvalidConfig, "predictor is required")
	}

	d.mu.RLock()
	st := d.state()
	d.mu.RUnlock()
	status := checkStatus(ctx, st, predictor)

	d.mu.Lock()
	defer d.mu.Unlock()

	if previous, ok := d.services[cfg.ModelName]; ok {
		d.logger.Info("replacing model server",
			"model", cfg.ModelName,
			"previous_version", previous.service.ModelVersion,
			"uuid", previous.service.UUID.String(),
		)
	}

	e := &entry{
		service: &deployer.Service{
			UUID:         uuid.New(),
			PipelineName: cfg.PipelineName,
			StepName:     cfg.StepName,
			ModelName:    cfg.ModelName,
			ModelVersion: cfg.ModelVersion,
			Hostname:     d.hostname,
			CreatedAt:    d.now(),
		},
		predictor: predictor,
	}
	if current := d.state(); current == st {
		apply(e.service, st, status)
	} else {
		// the server started or stopped during the health check, the next
		// refresh checks the service again.
		idle := serverState{stopped: current.stopped}
		apply(e.service, idle, checkStatus(ctx, idle, predictor))
	}
	d.services[cfg.ModelName] = e

	d.logger.WithModel(cfg.ModelName, cfg.ModelVersion).Info("model deployed",
		"uuid", e.service.UUID.String(),
		"state", string(e.service.Status.State),
	)

	cp := *e.service

	return &cp, nil
}

// FindModelServer returns the services matching query, newest first.
func (d *Deployer) FindModelServer(ctx context.Context, query deployer.Query) ([]*deployer.Service, error) {
	d.refreshAll(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()

	res := []*deployer.Service{}
	for _, e := range d.services {
		if !query.Match(e.service) {
			continue
		}
		cp := *e.service
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

// Stop removes the service.
func (d *Deployer) Stop(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, e := range d.services {
		if e.service.UUID == id {
			delete(d.services, name)
			d.logger.Info("model server stopped", "model", name, "uuid", id.String())

			return nil
		}
	}

	return errors.Wrap(deployer.ErrServiceNotFound, id.String())
}

func (d *Deployer) lookup(modelName string) (*entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.services[modelName]

	return e, ok
}

var _ deployer.Deployer = (*Deployer)(nil)
