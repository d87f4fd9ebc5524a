// Package web exposes the agenda over HTTP: one read endpoint that
// resolves a day's schedule, and write endpoints for the per-occurrence
// actions (complete, skip, defer). Agenda responses are never cached:
// every request re-reads instance records, so a transition is visible on
// the very next read.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"famcal/internal/config"
	appLog "famcal/internal/log"
	"famcal/internal/model"
	"famcal/internal/schedule"
	"famcal/internal/store"
)

// CalendarSource is the external-calendar collaborator the agenda handler
// reads events from.
type CalendarSource interface {
	EventsForDay(ctx context.Context, d model.Date) ([]model.CalendarEvent, error)
}

// Server wires config, the persistence store and the calendar client into
// the HTTP API.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	calendar CalendarSource
	trans    *schedule.Transitioner
	loc      *time.Location
	mux      *http.ServeMux
}

// NewServer constructs a Server over its collaborators.
func NewServer(cfg *config.Config, st *store.Store, cal CalendarSource) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		calendar: cal,
		trans:    schedule.NewTransitioner(st, st),
		loc:      resolveLocationOrLocal(cfg.Timezone),
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every handler except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="famcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("POST /api/agenda/complete", s.handleAction(actionComplete))
	s.mux.HandleFunc("POST /api/agenda/uncomplete", s.handleAction(actionUncomplete))
	s.mux.HandleFunc("POST /api/agenda/skip", s.handleAction(actionSkip))
	s.mux.HandleFunc("POST /api/agenda/defer", s.handleDefer)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("DELETE /api/tasks", s.handleDeleteTask)

	s.mux.HandleFunc("GET /api/routines", s.handleListRoutines)
	s.mux.HandleFunc("POST /api/routines", s.handleCreateRoutine)
	s.mux.HandleFunc("DELETE /api/routines", s.handleDeleteRoutine)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// agendaResponse is the JSON shape for GET /api/agenda.
type agendaResponse struct {
	Date     string            `json:"date"`
	Timezone string            `json:"timezone"`
	Sections model.DaySections `json:"sections"`
}

// handleAgenda resolves one day's agenda.
//
// GET /api/agenda?date=YYYY-MM-DD (default: today in the configured zone)
//
// A calendar fetch failure is returned as an error rather than an empty
// agenda; the previous display staying up beats a silently incomplete one.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.calendar.EventsForDay(ctx, day)
	if err != nil {
		appLog.Error("agenda: calendar fetch failed", err, "date", day.String())
		writeError(w, http.StatusBadGateway, "calendar fetch failed")
		return
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	routines, err := s.store.ListRoutineDefinitions(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list routines")
		return
	}
	instances, err := s.store.ListInstancesForDate(ctx, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}

	sections := schedule.BuildDaySections(schedule.DayInput{
		Date:      day,
		Location:  s.loc,
		Tasks:     tasks,
		Routines:  routines,
		Events:    events,
		Instances: instances,
	})

	writeJSON(w, http.StatusOK, agendaResponse{
		Date:     day.String(),
		Timezone: s.loc.String(),
		Sections: sections,
	})
}

// actionRequest is the body for the status-changing endpoints.
type actionRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Date       string `json:"date"`
	// To is the deferral target (RFC3339), defer only.
	To string `json:"to,omitempty"`
}

type actionKind int

const (
	actionComplete actionKind = iota
	actionUncomplete
	actionSkip
)

func (s *Server) handleAction(kind actionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		et, id, day, _, ok := s.decodeAction(w, r, false)
		if !ok {
			return
		}

		var err error
		switch kind {
		case actionComplete:
			err = s.trans.Complete(r.Context(), et, id, day)
		case actionUncomplete:
			err = s.trans.UndoComplete(r.Context(), et, id, day)
		case actionSkip:
			err = s.trans.Skip(r.Context(), et, id, day)
		}
		if err != nil {
			appLog.Error("agenda action failed", err, "entity_type", string(et), "entity_id", id, "date", day.String())
			writeError(w, http.StatusInternalServerError, "action failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDefer(w http.ResponseWriter, r *http.Request) {
	et, id, day, to, ok := s.decodeAction(w, r, true)
	if !ok {
		return
	}
	if err := s.trans.Defer(r.Context(), et, id, day, to); err != nil {
		appLog.Error("agenda defer failed", err, "entity_type", string(et), "entity_id", id, "date", day.String())
		writeError(w, http.StatusInternalServerError, "defer failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeAction(w http.ResponseWriter, r *http.Request, needTarget bool) (model.EntityType, string, model.Date, time.Time, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", "", model.Date{}, time.Time{}, false
	}

	et := model.EntityType(req.EntityType)
	switch et {
	case model.EntityTask, model.EntityRoutine, model.EntityCalendarEvent:
	default:
		writeError(w, http.StatusBadRequest, "unknown entity_type")
		return "", "", model.Date{}, time.Time{}, false
	}
	if req.EntityID == "" {
		writeError(w, http.StatusBadRequest, "entity_id is required")
		return "", "", model.Date{}, time.Time{}, false
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return "", "", model.Date{}, time.Time{}, false
	}

	var to time.Time
	if needTarget {
		to, err = time.Parse(time.RFC3339, req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return "", "", model.Date{}, time.Time{}, false
		}
	}
	return et, req.EntityID, day, to, true
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if t.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	created, err := s.store.CreateTask(r.Context(), t)
	if err != nil {
		appLog.Error("task create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.store.ListRoutineDefinitions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list routines")
		return
	}
	writeJSON(w, http.StatusOK, routines)
}

func (s *Server) handleCreateRoutine(w http.ResponseWriter, r *http.Request) {
	var def model.RoutineDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if def.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := s.store.CreateRoutine(r.Context(), def)
	if err != nil {
		appLog.Error("routine create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create routine")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteRoutine(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.store.DeleteRoutine(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete routine")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dateParam(r *http.Request) (model.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return model.DateOf(time.Now().In(s.loc)), nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, errors.New("date must be YYYY-MM-DD")
	}
	return d, nil
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
