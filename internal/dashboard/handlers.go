package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/model"
	"github.com/sells-group/bonus-cli/internal/report"
)

// Handler holds the dashboard's dependencies.
type Handler struct {
	engine *bonus.Engine
	agg    *report.Aggregator
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []model.BonusRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	var form bonus.SubmitForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, model.Invalidf("invalid request body"))
		return
	}

	rec, err := h.engine.Save(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.engine.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch bonus.MetricsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, model.Invalidf("invalid request body"))
		return
	}

	rec, err := h.engine.Update(r.Context(), key, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromURL(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.engine.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) KPIs(w http.ResponseWriter, r *http.Request) {
	snap, err := h.agg.KPIs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) IndividualReport(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	start, err := optionalDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := optionalDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, err)
		return
	}

	rep, err := h.agg.Individual(r.Context(), agentID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func keyFromURL(r *http.Request) (model.RecordKey, error) {
	ts, err := model.ParseTimestamp(chi.URLParam(r, "timestamp"))
	if err != nil {
		return model.RecordKey{}, err
	}
	return model.NewRecordKey(chi.URLParam(r, "agentID"), ts), nil
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := model.ParseTimestamp(raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
