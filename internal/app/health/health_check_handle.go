package health

import (
	"net/http"

	"github.com/IsaacDSC/cachefn/pkg/httpadapter"
)

func GetHealthCheckHandler() httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /health",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("pong"))
		},
	}
}
