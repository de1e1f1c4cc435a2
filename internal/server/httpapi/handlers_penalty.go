package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
	"github.com/Psheikomaniac/cashcow-go/internal/server/services"
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := s.penalties.Create(r.Context(), userID(r), services.CreatePenaltyInput{
		ID:          mux.Vars(r)["id"],
		MemberID:    req.MemberID,
		TypeID:      req.TypeID,
		Reason:      req.Reason,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePenalty(w, http.StatusOK, p)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ifMatch, ok := parseIfMatch(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := s.penalties.Update(r.Context(), userID(r), mux.Vars(r)["id"], services.UpdatePenaltyInput{
		Reason:      req.Reason,
		AmountCents: req.AmountCents,
		Archived:    req.Archived,
		UpdatedAt:   req.UpdatedAt,
	}, ifMatch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePenalty(w, http.StatusOK, p)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	ifMatch, ok := parseIfMatch(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := s.penalties.MarkPaid(r.Context(), userID(r), mux.Vars(r)["id"], req.PaidAt, req.UpdatedAt, ifMatch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePenalty(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ifMatch, ok := parseIfMatch(w, r)
	if !ok {
		return
	}

	p, err := s.penalties.Delete(r.Context(), userID(r), mux.Vars(r)["id"], ifMatch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePenalty(w, http.StatusOK, p)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	cursor := int64(0)
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		var err error
		cursor, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor < 0 {
			writeError(w, http.StatusBadRequest, "malformed cursor")
			return
		}
	}

	changed, next, err := s.penalties.ChangesSince(r.Context(), userID(r), cursor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := &changesResponse{NextCursor: next, Penalties: make([]penaltyPayload, 0, len(changed))}
	for i := range changed {
		resp.Penalties = append(resp.Penalties, *toPayload(&changed[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseIfMatch reads the version token header. Mutations on existing records
// always carry one; its absence is a client bug, not a conflict.
func parseIfMatch(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(common.IfMatchHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing If-Match header")
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		writeError(w, http.StatusBadRequest, "malformed If-Match header")
		return 0, false
	}
	return v, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &conflict):
		// The current server copy travels in the body so the client can
		// merge without another round trip.
		writePenalty(w, http.StatusPreconditionFailed, conflict.Current)
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "penalty not found")
	case errors.Is(err, common.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrRefreshTokenExpired):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrRejected),
		errors.Is(err, common.ErrNegativeAmount),
		errors.Is(err, common.ErrUnknownCurrency):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writePenalty(w http.ResponseWriter, status int, p *models.Penalty) {
	w.Header().Set(common.ETagHeader, strconv.FormatInt(p.Version, 10))
	writeJSON(w, status, toPayload(p))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &errorResponse{Error: msg})
}
