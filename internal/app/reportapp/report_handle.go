package reportapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/IsaacDSC/cachefn/internal/report"
	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/httpadapter"
	"github.com/IsaacDSC/cachefn/pkg/memo"
	"github.com/IsaacDSC/cachefn/pkg/queryparser"
)

var ErrInvalidYear = errors.New("invalid year")

type Reports interface {
	Total(ctx context.Context, year int) (int64, error)
	Breakdown(ctx context.Context, p report.Period) (map[string]int64, error)
	Regions(ctx context.Context) ([]string, error)
}

type TotalQuery struct {
	Year int `query:"year,required"`
}

type BreakdownQuery struct {
	From string `query:"from,required"`
	To   string `query:"to,required"`
}

type TotalResponse struct {
	Year  int   `json:"year"`
	Total int64 `json:"total"`
}

type BreakdownResponse struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	ByRegion map[string]int64 `json:"by_region"`
}

type RegionsResponse struct {
	Regions []string `json:"regions"`
}

func GetTotalHandle(reports Reports) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /reports/total",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var q TotalQuery
			if err := queryparser.Parse(r.URL.Query(), &q); err != nil {
				httpadapter.WriteError(w, r, http.StatusBadRequest, err)
				return
			}

			if q.Year < 1 {
				httpadapter.WriteError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %d", ErrInvalidYear, q.Year))
				return
			}

			total, err := reports.Total(r.Context(), q.Year)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			httpadapter.WriteJSON(w, r, http.StatusOK, TotalResponse{Year: q.Year, Total: total})
		},
	}
}

func GetBreakdownHandle(reports Reports) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /reports/breakdown",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			var q BreakdownQuery
			if err := queryparser.Parse(r.URL.Query(), &q); err != nil {
				httpadapter.WriteError(w, r, http.StatusBadRequest, err)
				return
			}

			p, err := report.ParsePeriod(q.From, q.To)
			if err != nil {
				httpadapter.WriteError(w, r, http.StatusBadRequest, err)
				return
			}

			byRegion, err := reports.Breakdown(r.Context(), p)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			if byRegion == nil {
				byRegion = map[string]int64{}
			}

			httpadapter.WriteJSON(w, r, http.StatusOK, BreakdownResponse{
				From:     q.From,
				To:       q.To,
				ByRegion: byRegion,
			})
		},
	}
}

func GetRegionsHandle(reports Reports) httpadapter.HttpHandle {
	return httpadapter.HttpHandle{
		Path: "GET /reports/regions",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			regions, err := reports.Regions(r.Context())
			if err != nil {
				writeErr(w, r, err)
				return
			}

			if regions == nil {
				regions = []string{}
			}

			httpadapter.WriteJSON(w, r, http.StatusOK, RegionsResponse{Regions: regions})
		},
	}
}

// writeErr maps dispatch failures to a status. Backend failures mean the
// cache is unavailable, not that the request was wrong.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	ctxlogger.GetLogger(r.Context()).Error("report request failed", "error", err)

	switch {
	case errors.Is(err, report.ErrInvalidPeriod):
		httpadapter.WriteError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, memo.ErrBackend):
		httpadapter.WriteError(w, r, http.StatusServiceUnavailable, err)
	case errors.Is(err, memo.ErrMethodNotFound):
		httpadapter.WriteError(w, r, http.StatusNotImplemented, err)
	default:
		httpadapter.WriteError(w, r, http.StatusInternalServerError, err)
	}
}
