package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/middleware"
	"eeg-data-sharing/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
)

// Directory enriquece respuestas con emails y nombres. Best-effort: "" si no resuelve.
type Directory interface {
	EmailOf(ctx context.Context, userID string) string
	NameOf(ctx context.Context, userID string) string
}

// RecordCatalog evita que el handler dependa del servicio de registros completo.
type RecordCatalog interface {
	GetByID(ctx context.Context, id string) (records.Record, error)
}

type RouteOptions struct {
	Directory Directory
	Records   RecordCatalog

	// CreateRateLimit: altas por minuto por usuario. 0 desactiva el límite.
	CreateRateLimit int
}

var validate = validator.New()

func RegisterRoutes(r chi.Router, svc *Service, opts RouteOptions) {
	r.Route("/sharing/requests", func(sr chi.Router) {
		sr.Group(func(gr chi.Router) {
			if opts.CreateRateLimit > 0 {
				gr.Use(httprate.Limit(opts.CreateRateLimit, time.Minute,
					httprate.WithKeyFuncs(rateLimitKey),
					httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
						http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
					}),
				))
			}
			gr.Post("/", createRequestHandler(svc, opts))
		})

		sr.Get("/incoming", listIncomingHandler(svc, opts))
		sr.Get("/outgoing", listOutgoingHandler(svc, opts))

		sr.Route("/{requestID}", func(rr chi.Router) {
			rr.Get("/", getRequestHandler(svc, opts))
			rr.Post("/accept", transitionHandler(svc.Accept, opts))
			rr.Post("/reject", transitionHandler(svc.Reject, opts))
			rr.Post("/revoke", transitionHandler(svc.Revoke, opts))
		})
	})

	// Plano (sin Route) porque /records también lo registra el módulo access.
	r.Get("/records/{recordID}/sharing", listByRecordHandler(svc, opts))
}

// RegisterAdminRoutes monta el disparador manual del reaper, solo para admin.
func RegisterAdminRoutes(r chi.Router, reaper *Reaper) {
	r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/admin/sharing/sweep", sweepHandler(reaper))
}

type createRequestBody struct {
	RecordID       string     `json:"record_id" validate:"required"`
	RecipientEmail string     `json:"recipient_email" validate:"required,email"`
	Permission     string     `json:"permission" validate:"omitempty,oneof=view_only view_download"`
	Message        string     `json:"message" validate:"max=1000"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

type requestResponse struct {
	ID             string `json:"id"`
	RecordID       string `json:"record_id"`
	RecordFilename string `json:"record_filename,omitempty"`

	SharedByUserID   string `json:"shared_by_user_id"`
	SharedByEmail    string `json:"shared_by_email,omitempty"`
	SharedByName     string `json:"shared_by_name,omitempty"`
	SharedWithUserID string `json:"shared_with_user_id"`
	SharedWithEmail  string `json:"shared_with_email,omitempty"`
	SharedWithName   string `json:"shared_with_name,omitempty"`

	Permission Permission `json:"permission"`
	Message    *string    `json:"message,omitempty"`
	Status     Status     `json:"status"`

	RequestedAt time.Time  `json:"requested_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// createRequestHandler godoc
// @Summary      Create a sharing request
// @Tags         sharing
// @Accept       json
// @Produce      json
// @Param        body  body      createRequestBody  true  "record and recipient"
// @Success      201   {object}  requestResponse
// @Failure      400,403,404,409  {string}  string
// @Router       /sharing/requests [post]
func createRequestHandler(svc *Service, opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body createRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		req, err := svc.CreateRequest(r.Context(), CreateInput{
			RequesterID:    claims.UserID,
			RecordID:       body.RecordID,
			RecipientEmail: body.RecipientEmail,
			Permission:     Permission(body.Permission),
			Message:        body.Message,
			ExpiresAt:      body.ExpiresAt,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toResponse(r.Context(), req, opts))
	}
}

// listIncomingHandler godoc
// @Summary      Requests shared with the caller
// @Tags         sharing
// @Produce      json
// @Param        status  query  string  false  "CSV of statuses"
// @Success      200  {array}  requestResponse
// @Router       /sharing/requests/incoming [get]
func listIncomingHandler(svc *Service, opts RouteOptions) http.HandlerFunc {
	return listHandler(svc.ListIncoming, opts)
}

// listOutgoingHandler godoc
// @Summary      Requests created by the caller
// @Tags         sharing
// @Produce      json
// @Param        status  query  string  false  "CSV of statuses"
// @Success      200  {array}  requestResponse
// @Router       /sharing/requests/outgoing [get]
func listOutgoingHandler(svc *Service, opts RouteOptions) http.HandlerFunc {
	return listHandler(svc.ListOutgoing, opts)
}

type listFunc func(ctx context.Context, userID string, statuses map[Status]struct{}) ([]Request, error)

func listHandler(list listFunc, opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		statuses, err := ParseStatusFilter(r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, err)
			return
		}

		items, err := list(r.Context(), claims.UserID, statuses)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(r.Context(), items, opts))
	}
}

func getRequestHandler(svc *Service, opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		req, err := svc.Get(r.Context(), chi.URLParam(r, "requestID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(r.Context(), req, opts))
	}
}

type transitionFunc func(ctx context.Context, requestID, actingUserID string) (Request, error)

// transitionHandler sirve accept/reject/revoke: cambia solo la operación.
func transitionHandler(apply transitionFunc, opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		req, err := apply(r.Context(), chi.URLParam(r, "requestID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(r.Context(), req, opts))
	}
}

func listByRecordHandler(svc *Service, opts RouteOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByRecord(r.Context(), chi.URLParam(r, "recordID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(r.Context(), items, opts))
	}
}

// sweepHandler godoc
// @Summary      Run the expiry sweep now
// @Tags         admin
// @Produce      json
// @Success      200  {object}  SweepResult
// @Failure      401,403,500  {string}  string
// @Router       /admin/sharing/sweep [post]
func sweepHandler(reaper *Reaper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := reaper.Sweep(r.Context())
		if err != nil {
			http.Error(w, "sweep finished with errors", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// writeError traduce errores del ledger a HTTP. El cuerpo nombra la causa
// para distinguir expirado, no autorizado y ya resuelto.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toResponse(ctx context.Context, req Request, opts RouteOptions) requestResponse {
	out := requestResponse{
		ID:               req.ID,
		RecordID:         req.RecordID,
		SharedByUserID:   req.SharedByUserID,
		SharedWithUserID: req.SharedWithUserID,
		Permission:       req.Permission,
		Message:          req.Message,
		Status:           req.Status,
		RequestedAt:      req.RequestedAt,
		AcceptedAt:       req.AcceptedAt,
		RejectedAt:       req.RejectedAt,
		ExpiresAt:        req.ExpiresAt,
	}
	if opts.Directory != nil {
		out.SharedByEmail = opts.Directory.EmailOf(ctx, req.SharedByUserID)
		out.SharedWithEmail = opts.Directory.EmailOf(ctx, req.SharedWithUserID)
		out.SharedByName = opts.Directory.NameOf(ctx, req.SharedByUserID)
		out.SharedWithName = opts.Directory.NameOf(ctx, req.SharedWithUserID)
	}
	if opts.Records != nil {
		if rec, err := opts.Records.GetByID(ctx, req.RecordID); err == nil {
			out.RecordFilename = rec.Filename
		}
	}
	return out
}

func toResponses(ctx context.Context, items []Request, opts RouteOptions) []requestResponse {
	out := make([]requestResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toResponse(ctx, it, opts))
	}
	return out
}

func rateLimitKey(r *http.Request) (string, error) {
	if claims, ok := middleware.GetClaims(r.Context()); ok && claims.UserID != "" {
		return "user:" + claims.UserID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
