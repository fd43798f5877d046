package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
	"github.com/kirillkom/chemdoc-processor/internal/core/ports"
)

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	cfg       Config
	ingest    ports.DocumentIngestor
	processor ports.DocumentProcessor
	trainer   ports.ModelTrainer
	admin     ports.ModelAdmin
	reader    ports.DocumentReader
	records   ports.RecordCreator
	exporter  ports.ResultExporter
	repo      ports.DocumentRepository
}

func NewRouter(
	cfg Config,
	ingest ports.DocumentIngestor,
	processor ports.DocumentProcessor,
	trainer ports.ModelTrainer,
	admin ports.ModelAdmin,
	reader ports.DocumentReader,
	records ports.RecordCreator,
	exporter ports.ResultExporter,
	repo ports.DocumentRepository,
) *Router {
	if cfg.QueueWait <= 0 {
		cfg.QueueWait = 100 * time.Millisecond
	}
	return &Router{
		cfg:       cfg,
		ingest:    ingest,
		processor: processor,
		trainer:   trainer,
		admin:     admin,
		reader:    reader,
		records:   records,
		exporter:  exporter,
		repo:      repo,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/extract", rt.extractText)
	mux.HandleFunc("/v1/train", rt.trainWithAnnotations)
	mux.HandleFunc("/v1/train/field", rt.trainFieldExample)
	mux.HandleFunc("/v1/train/auto", rt.autoTrain)
	mux.HandleFunc("/v1/model", rt.modelInfo)
	mux.HandleFunc("/v1/model/history", rt.modelHistory)
	mux.HandleFunc("/v1/model/reset", rt.resetSchema)
	mux.HandleFunc("/v1/model/rules", rt.addRule)
	mux.HandleFunc("/v1/model/export", rt.exportConfig)
	mux.HandleFunc("/v1/model/import", rt.importConfig)
	mux.HandleFunc("/v1/records", rt.createRecord)
	mux.HandleFunc("/v1/export/xlsx", rt.exportXLSX)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.QueueWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

// writeOpStatus renders a training/management outcome: input problems come
// back as 400 with the payload intact, everything else as 200.
func writeOpStatus(w http.ResponseWriter, status domain.OpStatus) {
	code := http.StatusOK
	if status.Status == domain.StatusError {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, status)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}
