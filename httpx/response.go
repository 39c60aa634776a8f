package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Message    string            `json:"message"`
	Data       any               `json:"data,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// maxBodyBytes caps request bodies read by Decode.
const maxBodyBytes = 1 << 20

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"message":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, msg string, data any) {
	JSON(w, status, Envelope{Message: msg, Data: data})
}

// Page writes a success envelope carrying pagination info.
func Page(w http.ResponseWriter, msg string, data any, p Pagination) {
	JSON(w, http.StatusOK, Envelope{Message: msg, Data: data, Pagination: &p})
}

func JSONError(w http.ResponseWriter, status int, msg string, detail string) {
	JSON(w, status, Envelope{Message: msg, Error: detail})
}

// ValidationError writes a 400 with per-field codes.
func ValidationError(w http.ResponseWriter, msg string, fields map[string]string) {
	JSON(w, http.StatusBadRequest, Envelope{Message: msg, Errors: fields})
}

// Decode reads a single JSON object from the request body into dst.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
