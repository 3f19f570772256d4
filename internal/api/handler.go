// Package api exposes the gradebook over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/gradebook/internal/calculator"
	"github.com/mmynk/gradebook/internal/middleware"
	"github.com/mmynk/gradebook/internal/models"
	"github.com/mmynk/gradebook/internal/service"
	"github.com/mmynk/gradebook/internal/storage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// StorageInfo reports on the primary store.
type StorageInfo interface {
	Info(ctx context.Context) storage.Info
}

// Handler serves the gradebook API.
type Handler struct {
	gradebook *service.Gradebook
	storage   StorageInfo
	validate  *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(gradebook *service.Gradebook, info StorageInfo) *Handler {
	return &Handler{
		gradebook: gradebook,
		storage:   info,
		validate:  validator.New(),
	}
}

// Router returns the HTTP routes. Metrics are served from gatherer at /metrics.
func (h *Handler) Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/semesters", h.listSemesters)
		r.Post("/semesters", h.addSemester)
		r.Delete("/semesters", h.reset)

		r.Route("/semesters/{id}", func(r chi.Router) {
			r.Get("/", h.getSemester)
			r.Patch("/", h.renameSemester)
			r.Delete("/", h.deleteSemester)
			r.Post("/subjects", h.addSubject)
			r.Put("/subjects/{subjectID}", h.updateSubject)
			r.Delete("/subjects/{subjectID}", h.removeSubject)
		})

		r.Get("/summary", h.summary)
		r.Get("/storage", h.storageInfo)
		r.Post("/gpa/semester", h.calculateSemester)
		r.Post("/gpa/overall", h.calculateOverall)
	})

	return r
}

// semesterResponse is a semester with its display fields.
type semesterResponse struct {
	models.Semester
	Display string `json:"display"`
	Label   string `json:"label"`
}

func newSemesterResponse(sem models.Semester) semesterResponse {
	return semesterResponse{
		Semester: sem,
		Display:  calculator.Format(sem.GPA),
		Label:    calculator.Label(sem.GPA),
	}
}

type collectionResponse struct {
	Semesters []semesterResponse `json:"semesters"`
	Overall   float64            `json:"ogpa"`
	Display   string             `json:"display"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type subjectRequest struct {
	Name    string         `json:"name" validate:"max=200"`
	Credits models.Numeric `json:"credits"`
	Hours   models.Numeric `json:"hours"`
}

type semesterGPARequest struct {
	Subjects []models.Subject `json:"subjects" validate:"max=100"`
}

type semesterGPAResponse struct {
	GPA      models.GPA `json:"gpa"`
	Reappear bool       `json:"reappear"`
	Display  string     `json:"display"`
	Label    string     `json:"label"`
}

type overallGPARequest struct {
	Semesters []models.Semester `json:"semesters" validate:"max=100"`
}

type overallGPAResponse struct {
	Overall float64 `json:"ogpa"`
	Display string  `json:"display"`
}

func (h *Handler) listSemesters(w http.ResponseWriter, r *http.Request) {
	semesters := h.gradebook.Semesters()
	resp := collectionResponse{
		Semesters: make([]semesterResponse, len(semesters)),
		Overall:   calculator.OverallGPA(semesters),
	}
	for i, sem := range semesters {
		resp.Semesters[i] = newSemesterResponse(sem)
	}
	resp.Display = calculator.Format(resp.Overall)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addSemester(w http.ResponseWriter, r *http.Request) {
	sem := h.gradebook.AddSemester(r.Context())
	writeJSON(w, http.StatusCreated, newSemesterResponse(sem))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.gradebook.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSemester(w http.ResponseWriter, r *http.Request) {
	sem, err := h.gradebook.Semester(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSemesterResponse(sem))
}

func (h *Handler) renameSemester(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !h.decode(w, r, &req) {
		return
	}
	sem, err := h.gradebook.RenameSemester(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSemesterResponse(sem))
}

func (h *Handler) deleteSemester(w http.ResponseWriter, r *http.Request) {
	if err := h.gradebook.DeleteSemester(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addSubject(w http.ResponseWriter, r *http.Request) {
	sub, err := h.gradebook.AddSubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) updateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	sub := models.Subject{
		ID:      chi.URLParam(r, "subjectID"),
		Name:    req.Name,
		Credits: req.Credits,
		Hours:   req.Hours,
	}
	sem, err := h.gradebook.UpdateSubject(r.Context(), chi.URLParam(r, "id"), sub)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSemesterResponse(sem))
}

func (h *Handler) removeSubject(w http.ResponseWriter, r *http.Request) {
	sem, err := h.gradebook.RemoveSubject(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subjectID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSemesterResponse(sem))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gradebook.Summary())
}

func (h *Handler) storageInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.storage.Info(r.Context()))
}

func (h *Handler) calculateSemester(w http.ResponseWriter, r *http.Request) {
	var req semesterGPARequest
	if !h.decode(w, r, &req) {
		return
	}
	gpa := calculator.SemesterGPA(req.Subjects)
	writeJSON(w, http.StatusOK, semesterGPAResponse{
		GPA:      gpa,
		Reappear: gpa.IsReappear(),
		Display:  calculator.Format(gpa),
		Label:    calculator.Label(gpa),
	})
}

func (h *Handler) calculateOverall(w http.ResponseWriter, r *http.Request) {
	var req overallGPARequest
	if !h.decode(w, r, &req) {
		return
	}
	ogpa := calculator.OverallGPA(req.Semesters)
	writeJSON(w, http.StatusOK, overallGPAResponse{
		Overall: ogpa,
		Display: calculator.Format(ogpa),
	})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSemesterNotFound), errors.Is(err, service.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
