package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/sheetdb"
	"github.com/samhvw8/finance-tracking/internal/submit"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain and remote errors onto status codes and the
// user-facing messages shown by the form.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: vErr.Message})
		return
	}

	if errors.Is(err, submit.ErrEmptyQueue) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "Không có giao dịch nào trong hàng chờ",
		})
		return
	}
	if errors.Is(err, submit.ErrInFlight) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "Đang gửi dữ liệu, vui lòng đợi",
		})
		return
	}

	var remote *sheetdb.RemoteError
	if errors.As(err, &remote) {
		if remote.InvalidCredential() {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error: "Token không hợp lệ hoặc đã hết hạn. Vui lòng cập nhật token.",
			})
			return
		}
		s.logger.ErrorContext(r.Context(), "Remote API rejected request",
			"status", remote.StatusCode, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "Không thể lưu các giao dịch. Vui lòng thử lại.",
		})
		return
	}

	var transport *sheetdb.TransportError
	if errors.As(err, &transport) {
		s.logger.ErrorContext(r.Context(), "Remote API unreachable", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: "Không thể kết nối máy chủ. Vui lòng kiểm tra mạng và thử lại.",
		})
		return
	}

	s.logger.ErrorContext(r.Context(), "Unhandled request error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: "Đã xảy ra lỗi. Vui lòng thử lại.",
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
