package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/payload"
)

type investmentRequest struct {
	Date         string `json:"date"`
	AccountID    string `json:"accountId"`
	Type         string `json:"type"`
	AssetName    string `json:"assetName"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"pricePerUnit"`
	Fees         string `json:"fees"`
	RealizedPL   string `json:"realizedPL"`
	Notes        string `json:"notes"`
}

type investmentResponse struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	AccountID    string `json:"accountId"`
	AccountName  string `json:"accountName"`
	Type         string `json:"type"`
	AssetName    string `json:"assetName"`
	Quantity     string `json:"quantity"`
	PricePerUnit string `json:"pricePerUnit"`
	TotalAmount  string `json:"totalAmount"`
	Fees         string `json:"fees"`
	RealizedPL   string `json:"realizedPL"`
	Notes        string `json:"notes,omitempty"`
}

type investmentSubmitRequest struct {
	Linked bool `json:"linked"`
}

func toInvestmentResponse(t core.InvestmentTransaction) investmentResponse {
	return investmentResponse{
		ID:           t.ID,
		Date:         t.Date.Format("2006-01-02"),
		AccountID:    t.AccountID,
		AccountName:  t.AccountName,
		Type:         string(t.Type),
		AssetName:    t.AssetName,
		Quantity:     t.Quantity.String(),
		PricePerUnit: t.PricePerUnit.String(),
		TotalAmount:  t.TotalAmount.String(),
		Fees:         t.Fees.String(),
		RealizedPL:   t.RealizedPL.String(),
		Notes:        t.Notes,
	}
}

func (s *Server) handleQueueInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Dữ liệu gửi lên không hợp lệ")
		return
	}

	day, err := parseDay(req.Date)
	if err != nil {
		badRequest(w, "Ngày không hợp lệ")
		return
	}

	quantity, err := payload.ParseFormatted(req.Quantity)
	if err != nil {
		s.writeError(w, r, core.ErrInvalidQuantity)
		return
	}
	price, err := payload.ParseFormatted(req.PricePerUnit)
	if err != nil {
		s.writeError(w, r, core.ErrInvalidPrice)
		return
	}
	fees, err := payload.ParseFormatted(req.Fees)
	if err != nil {
		s.writeError(w, r, core.ErrInvalidFees)
		return
	}
	realized, err := payload.ParseFormatted(req.RealizedPL)
	if err != nil {
		badRequest(w, "Lãi/lỗ thực hiện không hợp lệ")
		return
	}

	accountID := strings.TrimSpace(req.AccountID)
	accountName := accountID
	if a, ok := s.accounts.ByID(accountID); ok {
		accountName = a.Name
	}

	t := core.InvestmentTransaction{
		Date:         day,
		AccountID:    accountID,
		AccountName:  accountName,
		Type:         core.InvestmentType(strings.TrimSpace(req.Type)),
		AssetName:    strings.TrimSpace(req.AssetName),
		Quantity:     quantity,
		PricePerUnit: price,
		Fees:         fees,
		RealizedPL:   realized,
		Notes:        strings.TrimSpace(req.Notes),
	}
	t.Recalculate()

	if err := t.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := s.invQueue.Add(r.Context(), t)
	writeJSON(w, http.StatusCreated, toInvestmentResponse(t.WithID(id)))
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	items := s.invQueue.Items()
	resp := queueResponse[investmentResponse]{
		Count: len(items),
		Items: make([]investmentResponse, len(items)),
	}
	for i, t := range items {
		resp.Items[i] = toInvestmentResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "Mã giao dịch không hợp lệ")
		return
	}
	s.invQueue.Remove(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearInvestments(w http.ResponseWriter, r *http.Request) {
	if err := s.invQueue.Clear(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitInvestments(w http.ResponseWriter, r *http.Request) {
	var req investmentSubmitRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "Dữ liệu gửi lên không hợp lệ")
			return
		}
	}

	res, err := s.invSubmitter.Submit(r.Context(), req.Linked)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Submitted: res.Submitted,
		Message:   fmt.Sprintf("Đã lưu thành công %d giao dịch đầu tư!", res.Submitted),
	})
}
