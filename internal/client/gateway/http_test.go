package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	token      string
	refreshed  int
	refreshErr error
	// token handed out after a refresh
	refreshedToken string
}

func (f *fakeCreds) Token(ctx context.Context) (string, error) { return f.token, nil }

func (f *fakeCreds) Refresh(ctx context.Context) error {
	f.refreshed++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = f.refreshedToken
	return nil
}

func newGateway(t *testing.T, handler http.Handler, creds *fakeCreds) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if creds == nil {
		creds = &fakeCreds{token: "tok"}
	}
	return NewHTTPGateway(srv.URL, 2*time.Second, creds)
}

func snapshotForCreate() *models.Snapshot {
	reason := "late"
	amount := int64(500)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		MemberID:    "m1",
		TypeID:      "late",
		Reason:      &reason,
		AmountCents: &amount,
		Currency:    models.CurrencyEUR,
		CreatedAt:   &created,
		UpdatedAt:   created,
	}
}

func TestSubmitCreate_SendsPayloadAndParsesVersion(t *testing.T) {
	var gotBody penaltyPayload
	var gotIfMatch, gotAuth string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/penalties/p1", r.URL.Path)
		gotIfMatch = r.Header.Get(common.IfMatchHeader)
		gotAuth = r.Header.Get(common.AuthorizationHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set(common.ETagHeader, `"7"`)
		w.WriteHeader(http.StatusOK)
	})

	g := newGateway(t, h, nil)
	conf, err := g.SubmitCreate(context.Background(), "p1", snapshotForCreate())
	require.NoError(t, err)

	assert.Equal(t, int64(7), conf.Version)
	assert.Equal(t, "0", gotIfMatch, "create carries If-Match: 0")
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "p1", gotBody.ID)
	assert.Equal(t, int64(500), gotBody.AmountCents)
	assert.Equal(t, "EUR", gotBody.Currency)
}

func TestSubmit_ConflictCarriesRemoteState(t *testing.T) {
	paidAt := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(penaltyPayload{
			ID: "p1", MemberID: "m1", TypeID: "late", Reason: "remote wins",
			AmountCents: 700, Currency: "EUR", PaidAt: &paidAt,
			CreatedAt: paidAt.Add(-time.Hour), UpdatedAt: paidAt, Version: 9,
		})
	})

	g := newGateway(t, h, nil)
	_, err := g.SubmitUpdate(context.Background(), "p1", snapshotForCreate(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	ge, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, ge.Kind)
	require.NotNil(t, ge.Remote)
	assert.Equal(t, int64(9), ge.Remote.Version)
	assert.Equal(t, "remote wins", ge.Remote.Reason)
	require.NotNil(t, ge.Remote.PaidAt)
	assert.True(t, ge.Remote.PaidAt.Equal(paidAt))
}

func TestSubmit_ServerErrorIsTransient(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"db down"}`, http.StatusInternalServerError)
	})

	g := newGateway(t, h, nil)
	_, err := g.SubmitMarkPaid(context.Background(), "p1", snapshotForCreate(), 1)
	assert.ErrorIs(t, err, common.ErrTransient)
}

func TestSubmit_ValidationIsRejected(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"amount must not be negative"}`))
	})

	g := newGateway(t, h, nil)
	_, err := g.SubmitCreate(context.Background(), "p1", snapshotForCreate())
	require.ErrorIs(t, err, common.ErrRejected)

	ge, _ := AsError(err)
	assert.Equal(t, "amount must not be negative", ge.Message)
}

func TestSubmit_ConnectionErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens anymore

	g := NewHTTPGateway(srv.URL, time.Second, &fakeCreds{token: "tok"})
	_, err := g.SubmitCreate(context.Background(), "p1", snapshotForCreate())
	assert.ErrorIs(t, err, common.ErrTransient)
}

func TestDo_RefreshesOnceOn401(t *testing.T) {
	creds := &fakeCreds{token: "stale", refreshedToken: "fresh"}
	var seen []string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(common.AuthorizationHeader)
		seen = append(seen, token)
		if token != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set(common.ETagHeader, "3")
		w.WriteHeader(http.StatusOK)
	})

	g := newGateway(t, h, creds)
	conf, err := g.SubmitCreate(context.Background(), "p1", snapshotForCreate())
	require.NoError(t, err)
	assert.Equal(t, int64(3), conf.Version)
	assert.Equal(t, 1, creds.refreshed)
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
}

func TestDo_SecondUnauthorizedGivesUp(t *testing.T) {
	creds := &fakeCreds{token: "stale", refreshedToken: "still-bad"}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	g := newGateway(t, h, creds)
	_, err := g.SubmitCreate(context.Background(), "p1", snapshotForCreate())
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 1, creds.refreshed, "refresh is attempted exactly once")
}

func TestFetchChangesSince(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/changes", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("cursor"))
		_ = json.NewEncoder(w).Encode(changesResponse{
			Penalties: []penaltyPayload{
				{ID: "p1", MemberID: "m1", TypeID: "late", AmountCents: 500, Currency: "EUR", Version: 43},
				{ID: "p2", MemberID: "m2", TypeID: "beer", AmountCents: 150, Currency: "EUR", Version: 44},
			},
			NextCursor: 44,
		})
	})

	g := newGateway(t, h, nil)
	cs, err := g.FetchChangesSince(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(44), cs.NextCursor)
	require.Len(t, cs.Penalties, 2)
	assert.Equal(t, "p1", cs.Penalties[0].ID)
	assert.Equal(t, int64(43), cs.Penalties[0].Version)
}

func TestPing(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	g := newGateway(t, h, nil)
	assert.NoError(t, g.Ping(context.Background()))
}

func TestLogin_ReturnsTokenPair(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		var req credentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice", req.Username)
		_ = json.NewEncoder(w).Encode(tokenPairResponse{AccessToken: "a", RefreshToken: "r"})
	})

	g := newGateway(t, h, nil)
	access, refresh, err := g.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", access)
	assert.Equal(t, "r", refresh)
}
