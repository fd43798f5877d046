package httpadapter

import (
	"io"
	"net/http"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

func (rt *Router) trainWithAnnotations(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DocType     string             `json:"doc_type"`
		Text        string             `json:"text"`
		Annotations domain.Annotations `json:"annotations"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := rt.trainer.TrainWithAnnotations(r.Context(), domain.DocumentType(req.DocType), req.Text, req.Annotations)
	writeOpStatus(w, status)
}

func (rt *Router) trainFieldExample(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DocType       string `json:"doc_type"`
		Field         string `json:"field"`
		Text          string `json:"text"`
		Value         string `json:"value"`
		ContextBefore string `json:"context_before"`
		ContextAfter  string `json:"context_after"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := rt.trainer.TrainFieldExample(r.Context(), domain.DocumentType(req.DocType),
		req.Field, req.Text, req.Value, req.ContextBefore, req.ContextAfter)
	writeOpStatus(w, status)
}

func (rt *Router) autoTrain(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DocType string `json:"doc_type"`
		Text    string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := rt.trainer.AutoTrainAllFields(r.Context(), req.Text, domain.DocumentType(req.DocType))
	writeOpStatus(w, status)
}

func (rt *Router) modelInfo(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_schemas":    rt.admin.Schemas(r.Context()),
		"auto_trained_fields": rt.admin.AutoTrainedFields(r.Context()),
	})
}

func (rt *Router) modelHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"training_history": rt.admin.History(r.Context()),
	})
}

func (rt *Router) resetSchema(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DocType string `json:"doc_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := rt.admin.ResetSchema(r.Context(), domain.DocumentType(req.DocType))
	writeOpStatus(w, status)
}

func (rt *Router) addRule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DocType string `json:"doc_type"`
		Field   string `json:"field"`
		Pattern string `json:"pattern"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	status := rt.admin.AddRule(r.Context(), domain.DocumentType(req.DocType), req.Field, req.Pattern)
	writeOpStatus(w, status)
}

func (rt *Router) exportConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	data, err := rt.admin.ExportConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="model_config.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) importConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body"})
		return
	}

	status := rt.admin.ImportConfig(r.Context(), data)
	writeOpStatus(w, status)
}
