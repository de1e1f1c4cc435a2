package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Psheikomaniac/cashcow-go/internal/client/models"
	"github.com/Psheikomaniac/cashcow-go/internal/common"
)

// HTTPGateway implements Gateway against the penalty API over JSON/HTTP.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	creds   CredentialSource
}

// NewHTTPGateway returns a gateway for the API at baseURL. Every call is
// bounded by timeout; a timeout classifies as Transient.
func NewHTTPGateway(baseURL string, timeout time.Duration, creds CredentialSource) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

func (g *HTTPGateway) SubmitCreate(ctx context.Context, id string, s *models.Snapshot) (*Confirmation, error) {
	return g.submit(ctx, http.MethodPut, "/api/penalties/"+id, createPayload(id, s), 0)
}

func (g *HTTPGateway) SubmitUpdate(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error) {
	body := &updatePayload{
		Reason:      s.Reason,
		AmountCents: s.AmountCents,
		Archived:    s.Archived,
		UpdatedAt:   s.UpdatedAt,
	}
	return g.submit(ctx, http.MethodPatch, "/api/penalties/"+id, body, version)
}

func (g *HTTPGateway) SubmitMarkPaid(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error) {
	body := &payPayload{PaidAt: s.PaidAt, UpdatedAt: s.UpdatedAt}
	return g.submit(ctx, http.MethodPost, "/api/penalties/"+id+"/pay", body, version)
}

func (g *HTTPGateway) SubmitDelete(ctx context.Context, id string, s *models.Snapshot, version int64) (*Confirmation, error) {
	return g.submit(ctx, http.MethodDelete, "/api/penalties/"+id, nil, version)
}

func (g *HTTPGateway) submit(ctx context.Context, method, path string, body any, version int64) (*Confirmation, error) {
	resp, _, err := g.do(ctx, method, path, body, &version, true)
	if err != nil {
		return nil, err
	}
	v, err := parseETag(resp)
	if err != nil {
		return nil, &Error{Kind: KindRejected, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return &Confirmation{Version: v}, nil
}

func (g *HTTPGateway) FetchChangesSince(ctx context.Context, cursor int64) (*ChangeSet, error) {
	path := "/api/changes?cursor=" + strconv.FormatInt(cursor, 10)
	_, raw, err := g.do(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}

	var cr changesResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, &Error{Kind: KindRejected, Message: fmt.Sprintf("malformed change feed: %v", err)}
	}

	cs := &ChangeSet{NextCursor: cr.NextCursor}
	for _, p := range cr.Penalties {
		cs.Penalties = append(cs.Penalties, p.toModel())
	}
	return cs, nil
}

func (g *HTTPGateway) Ping(ctx context.Context) error {
	_, _, err := g.do(ctx, http.MethodGet, "/healthz", nil, nil, false)
	return err
}

// Register creates an account on the server.
func (g *HTTPGateway) Register(ctx context.Context, username, password string) error {
	_, _, err := g.do(ctx, http.MethodPost, "/api/auth/register",
		&credentialsRequest{Username: username, Password: password}, nil, false)
	return err
}

// Login exchanges credentials for a token pair.
func (g *HTTPGateway) Login(ctx context.Context, username, password string) (access, refresh string, err error) {
	_, raw, err := g.do(ctx, http.MethodPost, "/api/auth/login",
		&credentialsRequest{Username: username, Password: password}, nil, false)
	if err != nil {
		return "", "", err
	}
	return decodeTokenPair(raw)
}

// RefreshToken rotates a refresh token into a fresh pair.
func (g *HTTPGateway) RefreshToken(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	_, raw, err := g.do(ctx, http.MethodPost, "/api/auth/refresh",
		&refreshRequest{RefreshToken: refreshToken}, nil, false)
	if err != nil {
		return "", "", err
	}
	return decodeTokenPair(raw)
}

func decodeTokenPair(raw []byte) (string, string, error) {
	var tp tokenPairResponse
	if err := json.Unmarshal(raw, &tp); err != nil {
		return "", "", &Error{Kind: KindRejected, Message: fmt.Sprintf("malformed token response: %v", err)}
	}
	return tp.AccessToken, tp.RefreshToken, nil
}

// do performs one HTTP exchange and classifies the outcome. On a 401 with
// authenticated=true it asks the credential source to refresh once and
// retries the request with the new token.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, ifMatch *int64, authenticated bool) (*http.Response, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, &Error{Kind: KindRejected, Message: fmt.Sprintf("encode request: %v", err)}
		}
	}

	resp, raw, err := g.once(ctx, method, path, payload, ifMatch, authenticated)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		if rErr := g.creds.Refresh(ctx); rErr != nil {
			return nil, nil, &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode,
				Message: fmt.Sprintf("token refresh failed: %v", rErr)}
		}
		resp, raw, err = g.once(ctx, method, path, payload, ifMatch, authenticated)
		if err != nil {
			return nil, nil, err
		}
	}

	return g.classify(resp, raw)
}

func (g *HTTPGateway) once(ctx context.Context, method, path string, payload []byte, ifMatch *int64, authenticated bool) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, nil, &Error{Kind: KindRejected, Message: err.Error()}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ifMatch != nil {
		req.Header.Set(common.IfMatchHeader, strconv.FormatInt(*ifMatch, 10))
	}
	if authenticated {
		token, err := g.creds.Token(ctx)
		if err != nil {
			return nil, nil, &Error{Kind: KindUnauthorized, Message: fmt.Sprintf("no credential: %v", err)}
		}
		if token != "" {
			req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		// Network failures and client-side timeouts are retryable.
		return nil, nil, &Error{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &Error{Kind: KindTransient, Message: fmt.Sprintf("read response: %v", err)}
	}
	return resp, raw, nil
}

func (g *HTTPGateway) classify(resp *http.Response, raw []byte) (*http.Response, []byte, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, raw, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: errorMessage(raw)}

	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusPreconditionFailed:
		ge := &Error{Kind: KindConflict, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		var p penaltyPayload
		if err := json.Unmarshal(raw, &p); err == nil && p.ID != "" {
			remote := p.toModel()
			ge.Remote = &remote
		}
		return nil, nil, ge

	case resp.StatusCode >= 500:
		return nil, nil, &Error{Kind: KindTransient, StatusCode: resp.StatusCode, Message: errorMessage(raw)}

	default:
		return nil, nil, &Error{Kind: KindRejected, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
}

func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

func parseETag(resp *http.Response) (int64, error) {
	etag := strings.Trim(resp.Header.Get(common.ETagHeader), `"`)
	if etag == "" {
		return 0, fmt.Errorf("missing %s header", common.ETagHeader)
	}
	v, err := strconv.ParseInt(etag, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed version token %q", etag)
	}
	return v, nil
}
