package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tipjar/internal/auth/models"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/httputil"
	"tipjar/pkg/requestcontext"
)

// Service is the wallet sign-in exchange.
type Service interface {
	IssueChallenge(ctx context.Context, address id.Identity) (*models.Challenge, error)
	ExchangeSignature(ctx context.Context, address id.Identity, signature string) (*models.TokenResult, error)
}

type Handler struct {
	auth       Service
	logger     *slog.Logger
	middleware []func(http.Handler) http.Handler
}

// New creates an auth Handler. middleware wraps every /auth route, which is
// where the IP rate limit goes.
func New(auth Service, logger *slog.Logger, middleware ...func(http.Handler) http.Handler) *Handler {
	return &Handler{auth: auth, logger: logger, middleware: middleware}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(h.middleware...)
		r.Post("/challenge", h.handleChallenge)
		r.Post("/token", h.handleToken)
	})
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ChallengeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	address, err := id.ParseIdentity(req.Address)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	challenge, err := h.auth.IssueChallenge(ctx, address)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewChallengeResponse(challenge))
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.TokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	address, err := id.ParseIdentity(req.Address)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if req.Signature == "" {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeValidation, "signature is required"))
		return
	}

	result, err := h.auth.ExchangeSignature(ctx, address, req.Signature)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, models.NewTokenResponse(result))
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "auth request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
