package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-faktur/httpx"
	"github.com/diewo77/go-faktur/internal/logger"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
)

// writeError maps a service error onto a status code and JSON body.
// Store failures are logged and their detail kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		httpx.ValidationError(w, msg, vErr.Fields)
	case errors.Is(err, services.ErrNoAuthor):
		httpx.JSONError(w, http.StatusUnauthorized, msg, err.Error())
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, msg, err.Error())
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.JSONError(w, http.StatusBadRequest, msg, err.Error())
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, msg, err.Error())
	default:
		logger.WithCtx(r.Context()).Error(msg, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, msg, "internal error")
	}
}

// pathID reads a positive numeric {id} URL parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, msg string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		httpx.ValidationError(w, msg, map[string]string{"id": "invalid"})
		return 0, false
	}
	return uint(id), true
}

// decode reads the JSON body into dst, answering 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, msg string, dst any) bool {
	if err := httpx.Decode(r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msg, err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return n
	}
	return def
}
