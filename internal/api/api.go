package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is what every page handler returns. Message is the text shown
// to the user; Error is logged and never sent.
type Response struct {
	Error    error  `json:"-"`
	Code     int    `json:"-"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func (r Response) Encode(w http.ResponseWriter) error {
	code := r.Code
	if code == 0 {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(r)
}

type HTTPHandler func(w http.ResponseWriter, r *http.Request) Response

func (fn HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := fn(w, r)

	if res.Error != nil {
		slog.ErrorContext(r.Context(), res.Error.Error(), "path", r.URL.Path, "code", res.Code)
	}

	if err := res.Encode(w); err != nil {
		slog.ErrorContext(r.Context(), err.Error(), "path", r.URL.Path)
	}
}
