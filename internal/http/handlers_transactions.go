package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samhvw8/finance-tracking/internal/core"
)

type transactionRequest struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note"`
}

type transactionResponse struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note,omitempty"`
}

type queueResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

type submitResponse struct {
	Submitted int    `json:"submitted"`
	Message   string `json:"message"`
}

// parseDay accepts a calendar day in either date-only or RFC 3339 form.
// Empty means today.
func parseDay(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.DateOf(time.Now()), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return core.DateOf(t), nil
	}
	return core.ParseDate(s)
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		Date:     t.Date.Format("2006-01-02"),
		Type:     string(t.Type),
		Category: t.Category,
		Name:     t.Name,
		Amount:   t.Amount,
		Note:     t.Note,
	}
}

func (s *Server) handleQueueTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Dữ liệu gửi lên không hợp lệ")
		return
	}

	day, err := parseDay(req.Date)
	if err != nil {
		badRequest(w, "Ngày không hợp lệ")
		return
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = core.DefaultCategory
	}

	t := core.Transaction{
		Date:     day,
		Type:     core.TransactionType(strings.TrimSpace(req.Type)),
		Category: category,
		Name:     strings.TrimSpace(req.Name),
		Amount:   req.Amount,
		Note:     strings.TrimSpace(req.Note),
	}
	if err := t.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := s.txQueue.Add(r.Context(), t)
	writeJSON(w, http.StatusCreated, toTransactionResponse(t.WithID(id)))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	items := s.txQueue.Items()
	resp := queueResponse[transactionResponse]{
		Count: len(items),
		Items: make([]transactionResponse, len(items)),
	}
	for i, t := range items {
		resp.Items[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "Mã giao dịch không hợp lệ")
		return
	}
	s.txQueue.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.txQueue.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitTransactions(w http.ResponseWriter, r *http.Request) {
	res, err := s.submitter.Submit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Submitted: res.Submitted,
		Message:   fmt.Sprintf("Đã lưu thành công %d giao dịch!", res.Submitted),
	})
}
