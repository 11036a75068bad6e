package handler

import (
	"encoding/json"
	"net/http"
)

// writeJSON — единый способ отдачи успешных ответов.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отдает ошибку в том же JSON-конверте, что ждет дашборд.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
