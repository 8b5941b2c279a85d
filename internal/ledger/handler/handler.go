package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tipjar/internal/ledger/models"
	id "tipjar/pkg/domain"
	dErrors "tipjar/pkg/domain-errors"
	"tipjar/pkg/platform/httputil"
	authmw "tipjar/pkg/platform/middleware/auth"
	"tipjar/pkg/requestcontext"
)

// Service defines the ledger operations exposed over HTTP.
type Service interface {
	Donate(ctx context.Context, caller id.Identity, amount id.Amount, message string) (*models.Event, error)
	Withdraw(ctx context.Context, caller id.Identity, amount id.Amount) (*models.Event, error)
	WithdrawAll(ctx context.Context, caller id.Identity) (*models.Event, error)
	TransferOwnership(ctx context.Context, caller, newOwner id.Identity) (*models.Event, error)
	Balance(ctx context.Context) (id.Amount, error)
	Owner(ctx context.Context) (id.Identity, error)
	TotalDonated(ctx context.Context, donor id.Identity) (id.Amount, error)
	Events(ctx context.Context, after uint64, limit int, kinds ...models.EventKind) ([]*models.Event, error)
}

// Handler serves the /ledger routes.
type Handler struct {
	ledger       Service
	stream       http.Handler
	jwtValidator authmw.JWTValidator
	logger       *slog.Logger
}

// New creates a ledger Handler. stream may be nil to disable the live feed.
func New(ledger Service, stream http.Handler, jwtValidator authmw.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:       ledger,
		stream:       stream,
		jwtValidator: jwtValidator,
		logger:       logger,
	}
}

// Register mounts the ledger routes. Reads are public; mutations need a
// bearer token whose subject is the caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/balance", h.handleBalance)
		r.Get("/owner", h.handleOwner)
		r.Get("/donors/{identity}/total", h.handleDonorTotal)
		r.Get("/events", h.handleEvents)
		if h.stream != nil {
			r.Handle("/events/stream", h.stream)
		}

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
			r.Post("/donations", h.handleDonate)
			r.Post("/withdrawals", h.handleWithdraw)
			r.Post("/withdrawals/all", h.handleWithdrawAll)
			r.Post("/owner", h.handleTransferOwnership)
		})
	})
}

func (h *Handler) handleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.DonateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	amount, err := req.Parse()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.Donate(ctx, caller, amount, req.Message)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.WithdrawRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	amount, err := req.Parse()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.Withdraw(ctx, caller, amount)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleWithdrawAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	event, err := h.ledger.WithdrawAll(ctx, caller)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.TransferOwnershipRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	newOwner, err := req.Parse()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	event, err := h.ledger.TransferOwnership(ctx, caller, newOwner)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewBalanceResponse(balance))
}

func (h *Handler) handleOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.ledger.Owner(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.OwnerResponse{Owner: owner.String()})
}

func (h *Handler) handleDonorTotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donor, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	total, err := h.ledger.TotalDonated(ctx, donor)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.DonorTotalResponse{
		Donor:    donor.String(),
		TotalWei: total.String(),
		Total:    total.Ether(),
	})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var after uint64
	if raw := q.Get("after"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(ctx, w, dErrors.New(dErrors.CodeInvalidInput, "after must be a non-negative integer"))
			return
		}
		after = n
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(ctx, w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	var kinds []models.EventKind
	for _, raw := range q["kind"] {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, models.EventKind(k))
			}
		}
	}

	events, err := h.ledger.Events(ctx, after, limit, kinds...)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	next := after
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	httputil.WriteJSON(w, http.StatusOK, models.EventsResponse{Events: events, Next: next})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (id.Identity, bool) {
	caller, ok := requestcontext.Caller(r.Context())
	if !ok {
		// RequireAuth guards every mutating route, so this is a wiring bug.
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.Identity{}, false
	}
	return caller, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "ledger request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
