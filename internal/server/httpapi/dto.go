package httpapi

import (
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
)

// penaltyPayload is the wire shape of a penalty, shared by mutation
// responses, 412 conflict bodies and the change feed.
type penaltyPayload struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"member_id"`
	TypeID      string     `json:"type_id"`
	Reason      string     `json:"reason"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Archived    bool       `json:"archived"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version,omitempty"`
}

func toPayload(p *models.Penalty) *penaltyPayload {
	return &penaltyPayload{
		ID:          p.ID,
		MemberID:    p.MemberID,
		TypeID:      p.TypeID,
		Reason:      p.Reason,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Archived:    p.Archived,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// createRequest is the body of PUT /api/penalties/{id}.
type createRequest struct {
	MemberID    string    `json:"member_id"`
	TypeID      string    `json:"type_id"`
	Reason      string    `json:"reason"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// updateRequest is the body of PATCH /api/penalties/{id}. Absent fields keep
// their stored values.
type updateRequest struct {
	Reason      *string   `json:"reason"`
	AmountCents *int64    `json:"amount_cents"`
	Archived    *bool     `json:"archived"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// payRequest is the body of POST /api/penalties/{id}/pay.
type payRequest struct {
	PaidAt    *time.Time `json:"paid_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// changesResponse is the body of GET /api/changes.
type changesResponse struct {
	Penalties  []penaltyPayload `json:"penalties"`
	NextCursor int64            `json:"next_cursor"`
}

// tokenPairResponse is the body of the login and refresh endpoints.
type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// credentialsRequest is the body of register and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest is the body of POST /api/auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}
