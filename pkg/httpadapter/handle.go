package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
)

type HttpHandle struct {
	Path    string
	Handler func(w http.ResponseWriter, r *http.Request)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		ctxlogger.GetLogger(r.Context()).Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	WriteJSON(w, r, status, ErrorResponse{Error: err.Error()})
}
