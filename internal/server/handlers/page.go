package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/core"
	apperrors "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/observability"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"grams": func(value float64) string { return strconv.FormatFloat(value, 'f', 1, 64) },
	"kcal":  func(value float64) string { return strconv.FormatFloat(value, 'f', 0, 64) },
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title  string
	Text   string
	Error  string
	Result *core.Entry
	Recent []core.Entry
}

// Index handles GET /.
func (h *MealHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageData{})
}

// AnalyzeForm handles POST /analyze from the page form. The meal is resolved,
// stored, and shown above the recent history.
func (h *MealHandler) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseForm(); err != nil {
		h.renderPage(w, r, http.StatusBadRequest, pageData{Error: "The form could not be read."})
		return
	}

	text := strings.TrimSpace(r.PostForm.Get("meal_text"))
	if text == "" {
		h.renderPage(w, r, http.StatusBadRequest, pageData{Error: "Describe a meal first."})
		return
	}

	analysis, err := h.Resolver.Resolve(r.Context(), text, nil)
	if err != nil {
		h.logPageError("Meal analysis failed", err)
		h.renderPage(w, r, http.StatusInternalServerError, pageData{Text: text, Error: "The meal could not be analysed."})
		return
	}

	result := &core.Entry{Text: text, Items: analysis.Items, Totals: analysis.Totals}
	if h.Store != nil {
		id, err := h.Store.SaveEntry(r.Context(), text, analysis.Items, nil)
		if err != nil {
			h.logPageError("Failed to save meal", err)
			h.renderPage(w, r, http.StatusInternalServerError, pageData{Text: text, Error: "The meal could not be saved.", Result: result})
			return
		}
		result.ID = id
		if saved, err := h.Store.GetEntry(r.Context(), id); err == nil && saved != nil {
			result = saved
		}
	}

	h.renderPage(w, r, http.StatusOK, pageData{Result: result})
}

func (h *MealHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	data.Title = "Meal log"
	if h.Store != nil {
		recent, err := h.Store.ListEntries(r.Context(), recentOnPage)
		if err != nil {
			h.logPageError("Failed to load recent meals", err)
		} else {
			data.Recent = recent
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *MealHandler) logPageError(msg string, err error) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn(msg, zap.Error(err))
	}
}
