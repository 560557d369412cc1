package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"income-predictor/internal/common"
)

type jsonError struct {
	Error string `json:"error"`
}

// writeJSONError writes {"error": message} with the given status code.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorMessage strips the sentinel suffix from bad request errors so the
// caller sees only the detail.
func errorMessage(err error) string {
	var ce *common.CategoryError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	if errors.Is(err, common.ErrBadRequest) {
		return strings.TrimSuffix(err.Error(), ": "+common.ErrBadRequest.Error())
	}
	return err.Error()
}
