package insightsapp

import (
	"context"
	"net/http"

	"github.com/IsaacDSC/cachefn/internal/domain"
	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/httpadapter"
)

type InsightsStore interface {
	GetAll(ctx context.Context) (domain.Metrics, error)
}

func GetInsightsHandle(store InsightsStore) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /insights",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			metrics, err := store.GetAll(ctx)
			if err != nil {
				ctxlogger.GetLogger(ctx).Error("failed to load insights", "error", err)
				httpadapter.WriteError(w, r, http.StatusInternalServerError, err)
				return
			}

			httpadapter.WriteJSON(w, r, http.StatusOK, metrics.Insights())
		},
	}
}
