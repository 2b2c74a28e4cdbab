package local

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/askiada/go-mlpipeline/pkg/deployer"
)

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Predictions  []float64 `json:"predictions"`
}

func (d *Deployer) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", d.handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/services", d.handleListServices)
		r.Get("/models/{model}", d.handleGetModel)
		r.Post("/models/{model}/predict", d.handlePredict)
	})

	return r
}

func (d *Deployer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *Deployer) handleListServices(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	services := make([]deployer.Service, 0, len(d.services))
	for _, e := range d.services {
		services = append(services, *e.service)
	}
	d.mu.RUnlock()

	sort.Slice(services, func(i, j int) bool {
		return services[i].ModelName < services[j].ModelName
	})
	writeJSON(w, http.StatusOK, services)
}

func (d *Deployer) handleGetModel(w http.ResponseWriter, r *http.Request) {
	e, ok := d.lookup(chi.URLParam(r, "model"))
	if !ok {
		writeError(w, http.StatusNotFound, "model not deployed")

		return
	}

	d.mu.RLock()
	svc := *e.service
	d.mu.RUnlock()
	writeJSON(w, http.StatusOK, svc)
}

func (d *Deployer) handlePredict(w http.ResponseWriter, r *http.Request) {
	e, ok := d.lookup(chi.URLParam(r, "model"))
	if !ok {
		writeError(w, http.StatusNotFound, "model not deployed")

		return
	}

	d.mu.RLock()
	svc := *e.service
	d.mu.RUnlock()
	if svc.IsFailed() {
		writeError(w, http.StatusServiceUnavailable, svc.Status.LastError)

		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")

		return
	}
	if len(req.Instances) == 0 {
		writeError(w, http.StatusBadRequest, "instances are required")

		return
	}

	predictions, err := e.predictor.Predict(r.Context(), req.Instances)
	if err != nil {
		d.logger.WithModel(svc.ModelName, svc.ModelVersion).Warn("prediction failed", "error", err.Error())
		writeError(w, http.StatusUnprocessableEntity, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		ModelName:    svc.ModelName,
		ModelVersion: svc.ModelVersion,
		Predictions:  predictions,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
