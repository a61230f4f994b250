package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/store"
)

type accountResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := s.categories.Categories()
	resp := make(map[string][]string, len(cats))
	for ty, values := range cats {
		resp[string(ty)] = values
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleCategories(w, r)
}

func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request) {
	list := s.accounts.Accounts()
	resp := make([]accountResponse, len(list))
	for i, a := range list {
		resp[i] = accountResponse{ID: a.ID, Name: a.Name, Type: a.Type}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshAccounts(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleAccounts(w, r)
}

type tokenRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	Configured bool `json:"configured"`
}

// Token endpoints manage the stored API credential. The token itself is
// never echoed back.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, tokenResponse{Configured: false})
		return
	}
	_, err := s.store.GetSetting(r.Context(), store.SettingAPIToken)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, tokenResponse{Configured: false})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Configured: true})
}

func (s *Server) handlePutToken(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: "Không thể lưu token khi chạy không có cơ sở dữ liệu",
		})
		return
	}

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Dữ liệu gửi lên không hợp lệ")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		s.writeError(w, r, &core.ValidationError{Message: "Vui lòng nhập token"})
		return
	}

	if err := s.store.PutSetting(r.Context(), store.SettingAPIToken, token); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "API token updated")
	writeJSON(w, http.StatusOK, tokenResponse{Configured: true})
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.store.DeleteSetting(r.Context(), store.SettingAPIToken); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
