// Package httpapi exposes the penalty service over JSON/HTTP: bearer-token
// auth, If-Match/ETag version tokens on mutations, and the change feed the
// client sync engine pulls from.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Psheikomaniac/cashcow-go/internal/logging"
	"github.com/Psheikomaniac/cashcow-go/internal/server/models"
	"github.com/Psheikomaniac/cashcow-go/internal/server/services"
)

// UserService is the auth surface the handlers call.
type UserService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// PenaltyService is the penalty surface the handlers call.
type PenaltyService interface {
	Create(ctx context.Context, userID string, in services.CreatePenaltyInput) (*models.Penalty, error)
	Update(ctx context.Context, userID, id string, in services.UpdatePenaltyInput, ifMatch int64) (*models.Penalty, error)
	MarkPaid(ctx context.Context, userID, id string, paidAt *time.Time, updatedAt time.Time, ifMatch int64) (*models.Penalty, error)
	Delete(ctx context.Context, userID, id string, ifMatch int64) (*models.Penalty, error)
	ChangesSince(ctx context.Context, userID string, cursor int64) ([]models.Penalty, int64, error)
}

// Server is the HTTP front of the penalty API.
type Server struct {
	addr      string
	log       logging.Logger
	users     UserService
	penalties PenaltyService
	secretKey []byte
}

// NewServer wires the HTTP layer over the services.
func NewServer(addr string, log logging.Logger, users UserService, penalties PenaltyService, secretKey []byte) *Server {
	return &Server{
		addr:      addr,
		log:       log,
		users:     users,
		penalties: penalties,
		secretKey: secretKey,
	}
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withAuth)
	api.HandleFunc("/penalties/{id}", s.handleCreate).Methods(http.MethodPut)
	api.HandleFunc("/penalties/{id}", s.handleUpdate).Methods(http.MethodPatch)
	api.HandleFunc("/penalties/{id}/pay", s.handlePay).Methods(http.MethodPost)
	api.HandleFunc("/penalties/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/changes", s.handleChanges).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
