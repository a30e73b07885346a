// Package handler provides the HTTP handlers for the users API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stevemurr/userdb/odm"
	"github.com/stevemurr/userdb/schema"
	"github.com/stevemurr/userdb/store"
	"github.com/stevemurr/userdb/user"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store store.Store
	users *odm.Model
	mux   *http.ServeMux
}

// New creates a Handler and wires up all routes. The users model is taken
// from reg.
func New(reg *odm.Registry, s store.Store) (*Handler, error) {
	users, err := user.Model(reg)
	if err != nil {
		return nil, fmt.Errorf("bind users model: %w", err)
	}
	h := &Handler{store: s, users: users, mux: http.NewServeMux()}
	h.routes()
	return h, nil
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /collections", h.listCollections)

	// Users
	h.mux.HandleFunc("POST /users", h.createUser)
	h.mux.HandleFunc("GET /users", h.listUsers)
	h.mux.HandleFunc("GET /users/{id}", h.getUser)
	h.mux.HandleFunc("PUT /users/{id}", h.updateUser)
	h.mux.HandleFunc("PATCH /users/{id}", h.patchUser)
	h.mux.HandleFunc("DELETE /users/{id}", h.deleteUser)
	h.mux.HandleFunc("GET /users/distinct/{field}", h.distinctUsers)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// readJSON decodes a JSON object body. An empty body is an error.
func readJSON(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	var v map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("body must be a JSON object")
	}
	return v, nil
}

func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// writeModelError maps kernel errors to status codes. Not-found responses
// differ per route, so callers handle odm.ErrNotFound before calling this.
func writeModelError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "userdb",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListCollections()
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// ---------- users ----------

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := h.users.Create(r.Context(), body)
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	records, err := h.users.Find(r.Context())
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": records})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.users.FindOne(r.Context(), id)
	if errors.Is(err, odm.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	h.modifyUser(w, r, h.users.Update)
}

func (h *Handler) patchUser(w http.ResponseWriter, r *http.Request) {
	h.modifyUser(w, r, h.users.Patch)
}

func (h *Handler) modifyUser(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64, fields map[string]any) (odm.Record, error)) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := readJSON(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := op(r.Context(), id, body)
	if errors.Is(err, odm.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = h.users.Delete(r.Context(), id)
	if errors.Is(err, odm.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func (h *Handler) distinctUsers(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	values, err := h.users.FindUnique(r.Context(), field)
	if err != nil {
		writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "values": values})
}
