package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/bonus-cli/internal/model"
	"github.com/sells-group/bonus-cli/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("dashboard: encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy to HTTP status codes: validation 400,
// unknown key 404, key collision 409, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("dashboard: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
