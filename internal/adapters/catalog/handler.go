// Package catalog exposes the producer and cheese catalog over HTTP and runs
// catalog exports into the blob store.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"cheeseshop/internal/blob"
	"cheeseshop/internal/entitymodel"
	"cheeseshop/pkg/domain"
)

// Catalog is the service surface the HTTP handlers drive.
type Catalog interface {
	ListProducers(ctx context.Context) ([]domain.Producer, error)
	GetProducer(ctx context.Context, id int64) (domain.Producer, []domain.Cheese, error)
	CreateProducer(ctx context.Context, in domain.ProducerInput) (domain.Producer, error)
	DeleteProducer(ctx context.Context, id int64) error
	ListCheeses(ctx context.Context) ([]domain.Cheese, error)
	GetCheese(ctx context.Context, id int64) (domain.Cheese, domain.Producer, error)
	CreateCheese(ctx context.Context, in domain.CheeseInput) (domain.Cheese, domain.Producer, error)
	UpdateCheese(ctx context.Context, id int64, patch domain.CheesePatch) (domain.Cheese, domain.Producer, error)
	DeleteCheese(ctx context.Context, id int64) error
}

// Handler provides HTTP access to producers, cheeses and exports.
// Exports and Metrics are optional; their routes are absent when nil.
type Handler struct {
	Catalog     Catalog
	Exports     ExportScheduler
	Metrics     http.Handler
	Logger      *slog.Logger
	CORSOrigins []string

	once  sync.Once
	chain http.Handler
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "catalog not configured")
		return
	}
	h.once.Do(func() {
		h.chain = requestLogging(h.logger(), cors(h.CORSOrigins, h.routes()))
	})
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /producers", h.handleListProducers)
	mux.HandleFunc("POST /producers", h.handleCreateProducer)
	mux.HandleFunc("GET /producers/{id}", h.handleGetProducer)
	mux.HandleFunc("DELETE /producers/{id}", h.handleDeleteProducer)
	mux.HandleFunc("GET /cheeses", h.handleListCheeses)
	mux.HandleFunc("POST /cheeses", h.handleCreateCheese)
	mux.HandleFunc("GET /cheeses/{id}", h.handleGetCheese)
	mux.HandleFunc("PATCH /cheeses/{id}", h.handleUpdateCheese)
	mux.HandleFunc("DELETE /cheeses/{id}", h.handleDeleteCheese)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /openapi.yaml", entitymodel.NewOpenAPIHandler())
	if h.Exports != nil {
		mux.HandleFunc("POST /exports", h.handleExportCreate)
		mux.HandleFunc("GET /exports/{id}", h.handleExportGet)
		mux.HandleFunc("GET /exports/{id}/{format}", h.handleExportDownload)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	return mux
}

func (h *Handler) handleListProducers(w http.ResponseWriter, r *http.Request) {
	producers, err := h.Catalog.ListProducers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]domain.ProducerSummary, 0, len(producers))
	for _, p := range producers {
		out = append(out, p.Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateProducer(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProducerInput(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	producer, err := h.Catalog.CreateProducer(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, producer.Detail(nil))
}

func (h *Handler) handleGetProducer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	producer, cheeses, err := h.Catalog.GetProducer(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, producer.Detail(cheeses))
}

func (h *Handler) handleDeleteProducer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	if err := h.Catalog.DeleteProducer(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCheeses(w http.ResponseWriter, r *http.Request) {
	cheeses, err := h.Catalog.ListCheeses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]domain.CheeseSummary, 0, len(cheeses))
	for _, c := range cheeses {
		out = append(out, c.Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateCheese(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCheeseInput(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cheese, producer, err := h.Catalog.CreateCheese(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cheese.Detail(producer))
}

func (h *Handler) handleGetCheese(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	cheese, producer, err := h.Catalog.GetCheese(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cheese.Detail(producer))
}

func (h *Handler) handleUpdateCheese(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	// An unknown cheese answers 404 whatever the body holds.
	if _, _, err := h.Catalog.GetCheese(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	patch, err := decodeCheesePatch(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	cheese, producer, err := h.Catalog.UpdateCheese(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cheese.Detail(producer))
}

func (h *Handler) handleDeleteCheese(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	if err := h.Catalog.DeleteCheese(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	input, err := decodeExportInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := h.Exports.EnqueueExport(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request) {
	record, ok := h.Exports.GetExport(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

func (h *Handler) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusNotFound, "export artifact not found")
		return
	}
	info, body, err := h.Exports.OpenArtifact(r.Context(), r.PathValue("id"), format)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "export artifact not found")
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	defer body.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// writeServiceError maps domain failures onto the catalog's status codes.
// Validation details stay out of the response body.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		writeNotFound(w)
	case domain.IsValidation(err):
		writeJSON(w, http.StatusNotAcceptable, map[string]any{"errors": []string{"validation errors"}})
	default:
		h.logger().ErrorContext(r.Context(), "http.request_failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
