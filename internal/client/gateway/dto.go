package gateway

import (
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
)

// penaltyPayload is the wire shape of a penalty. Timestamps travel as
// RFC 3339; the version token travels in headers (If-Match / ETag) on
// mutating calls and inline on change feeds.
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

func (p *penaltyPayload) toModel() models.Penalty {
	return models.Penalty{
		ID:          p.ID,
		MemberID:    p.MemberID,
		TypeID:      p.TypeID,
		Reason:      p.Reason,
		AmountCents: p.AmountCents,
		Currency:    models.Currency(p.Currency),
		Archived:    p.Archived,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// createPayload is the body of PUT /api/penalties/{id} for a create replay.
func createPayload(id string, s *models.Snapshot) *penaltyPayload {
	p := &penaltyPayload{
		ID:        id,
		MemberID:  s.MemberID,
		TypeID:    s.TypeID,
		Currency:  string(s.Currency),
		UpdatedAt: s.UpdatedAt,
	}
	if s.Reason != nil {
		p.Reason = *s.Reason
	}
	if s.AmountCents != nil {
		p.AmountCents = *s.AmountCents
	}
	if s.CreatedAt != nil {
		p.CreatedAt = *s.CreatedAt
	}
	return p
}

// updatePayload is the body of PUT /api/penalties/{id} for an edit replay.
// Only non-payment fields are present.
type updatePayload struct {
	Reason      *string   `json:"reason,omitempty"`
	AmountCents *int64    `json:"amount_cents,omitempty"`
	Archived    *bool     `json:"archived,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// payPayload is the body of POST /api/penalties/{id}/pay.
type payPayload struct {
	PaidAt    *time.Time `json:"paid_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// changesResponse is the body of GET /api/changes.
type changesResponse struct {
	Penalties  []penaltyPayload `json:"penalties"`
	NextCursor int64            `json:"next_cursor"`
}

// tokenPairResponse is the body of the auth endpoints.
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
