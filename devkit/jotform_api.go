package devkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
)

// JotformAPI serves the forms and webhook endpoints of the Jotform API from a
// FakeFormsService. Requests without the expected APIKEY header get 401.
type JotformAPI struct {
	Forms  *FakeFormsService
	APIKey string
	// PageSizeCap truncates /user/forms pages below the requested limit.
	PageSizeCap int
	mux         *http.ServeMux
	requests    atomic.Int64
}

func NewJotformAPI(forms *FakeFormsService, apiKey string) *JotformAPI {
	api := &JotformAPI{Forms: forms, APIKey: apiKey, mux: http.NewServeMux()}
	api.mux.HandleFunc("GET /user/forms", api.listForms)
	api.mux.HandleFunc("GET /form/{id}/webhooks", api.listWebhooks)
	api.mux.HandleFunc("POST /form/{id}/webhooks", api.addWebhook)
	api.mux.HandleFunc("DELETE /form/{id}/webhooks/{webhookID}", api.deleteWebhook)
	return api
}

func (a *JotformAPI) Requests() int64 {
	return a.requests.Load()
}

func (a *JotformAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.requests.Add(1)
	if r.Header.Get("APIKEY") != a.APIKey {
		writeJotform(w, http.StatusUnauthorized, "You're not authorized to use (/user/forms)", nil)
		return
	}
	a.mux.ServeHTTP(w, r)
}

func (a *JotformAPI) listForms(w http.ResponseWriter, r *http.Request) {
	forms, err := a.Forms.ListForms(r.Context())
	if err != nil {
		writeJotform(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	if a.PageSizeCap > 0 && limit > a.PageSizeCap {
		limit = a.PageSizeCap
	}
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	content := []map[string]string{}
	for index := offset; index < len(forms) && len(content) < limit; index++ {
		status := forms[index].Status
		if status == "" {
			status = "ENABLED"
		}
		content = append(content, map[string]string{
			"id":     forms[index].ID,
			"title":  forms[index].Title,
			"status": status,
		})
	}
	writeJotform(w, http.StatusOK, "success", content)
}

func (a *JotformAPI) listWebhooks(w http.ResponseWriter, r *http.Request) {
	a.writeWebhooks(w, r, r.PathValue("id"))
}

func (a *JotformAPI) addWebhook(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		writeJotform(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	target := strings.TrimSpace(r.PostForm.Get("webhookURL"))
	if target == "" {
		writeJotform(w, http.StatusBadRequest, "webhookURL is required", nil)
		return
	}
	if err := a.Forms.AddWebhook(r.Context(), formID, target); err != nil {
		writeJotform(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	a.writeWebhooks(w, r, formID)
}

func (a *JotformAPI) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	formID := r.PathValue("id")
	if err := a.Forms.DeleteWebhook(r.Context(), formID, r.PathValue("webhookID")); err != nil {
		writeJotform(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	a.writeWebhooks(w, r, formID)
}

// writeWebhooks renders {"id":"url"} in registration order, or [] when empty.
func (a *JotformAPI) writeWebhooks(w http.ResponseWriter, r *http.Request, formID string) {
	registrations, err := a.Forms.ListWebhooks(r.Context(), formID)
	if err != nil {
		writeJotform(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if len(registrations) == 0 {
		writeJotform(w, http.StatusOK, "success", []string{})
		return
	}
	var builder strings.Builder
	builder.WriteByte('{')
	for index, registration := range registrations {
		if index > 0 {
			builder.WriteByte(',')
		}
		key, _ := json.Marshal(registration.WebhookID)
		value, _ := json.Marshal(registration.URL)
		builder.Write(key)
		builder.WriteByte(':')
		builder.Write(value)
	}
	builder.WriteByte('}')
	writeJotform(w, http.StatusOK, "success", json.RawMessage(builder.String()))
}

func writeJotform(w http.ResponseWriter, status int, message string, content any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"responseCode": status,
		"message":      message,
		"content":      content,
	})
}

func atoiDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
