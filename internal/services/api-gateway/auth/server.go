package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/NordCoder/Recipebox/internal/domain/account"
	"github.com/NordCoder/Recipebox/internal/obs"
)

const maxBodyBytes = 1 << 20

type Server struct {
	uc    *Usecase
	log   *zap.Logger
	realm string
	now   func() time.Time
}

type Opts struct {
	Realm  string
	Logger *zap.Logger
	Now    func() time.Time
}

func NewServer(uc *Usecase, o Opts) *Server {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Server{uc: uc, log: o.Logger, realm: o.Realm, now: o.Now}
}

// Mount registers the user routes and the liveness endpoint on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.Health)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", s.Register)
		r.Post("/login", s.Login)
		r.Post("/refresh", s.Refresh)
		r.Get("/verify-email", s.VerifyEmail)
		r.Get("/verify-email/{token}", s.VerifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(RequireBearer(s.uc, s.realm))
			r.Get("/me", s.Me)
			r.Post("/logout", s.Logout)
		})
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken *string      `json:"refreshToken"`
	User         userResponse `json:"user"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	acc, err := s.uc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(acc))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.uc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := loginResponse{AccessToken: sess.AccessToken, User: toUser(sess.Account)}
	if sess.RefreshToken != "" {
		resp.RefreshToken = &sess.RefreshToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.uc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		// a token whose owner is gone is just an unusable token to the client
		if errors.Is(err, ErrUserNotFound) {
			err = ErrInvalidToken
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	acc, err := s.uc.GetAccountByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(acc))
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	if _, err := s.uc.Logout(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing verification token")
		return
	}
	if _, err := s.uc.VerifyEmailToken(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUserNotFound):
			writeError(w, http.StatusBadRequest, "invalid verification token")
		default:
			s.fail(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := httpStatus(err)
	if code == http.StatusInternalServerError {
		obs.WithTrace(r.Context(), s.log).Error("http.request.failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeError(w, code, msg)
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword), errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrInvalidCredentials.Error()
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, ErrTokenExpired.Error()
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, ErrInvalidToken.Error()
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, ErrUserNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func toUser(a *account.Account) userResponse {
	return userResponse{ID: a.ID.String(), Email: a.Email, IsVerified: a.IsVerified}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
