package httpmw

import (
	"encoding/json"
	"net/http"

	"stockflow/internal/pkg/logger"
)

const internalErrorBody = `{"error":"Internal server error"}`

// WriteJSON 先完成序列化再写状态码，序列化失败时返回 500 而不是半截响应
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(internalErrorBody))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
