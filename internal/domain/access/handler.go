package access

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RecordReader es lo que los endpoints de lectura necesitan del servicio de registros.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (records.Record, error)
	ListByIDs(ctx context.Context, recordIDs []string) ([]records.Record, error)
}

// RegisterRoutes monta /access y los endpoints de lectura de /records.
// Todo registro que se devuelve pasa antes por el resolver.
func RegisterRoutes(r chi.Router, resolver *Resolver, reader RecordReader) {
	r.Route("/access/records", func(ar chi.Router) {
		ar.Get("/", accessibleIDsHandler(resolver))
		ar.Get("/{recordID}", decisionHandler(resolver))
	})

	// Plano: /records/{recordID}/sharing lo registra el módulo sharing.
	r.Get("/records", listRecordsHandler(resolver, reader))
	r.Get("/records/{recordID}", getRecordHandler(resolver, reader))
}

// accessibleResponse: Scope es el alcance propio del rol; los grants se suman aparte.
type accessibleResponse struct {
	Scope     string   `json:"scope"`
	RecordIDs []string `json:"record_ids"`
}

type decisionResponse struct {
	RecordID   string             `json:"record_id"`
	CanAccess  bool               `json:"can_access"`
	Permission sharing.Permission `json:"permission,omitempty"`
	Basis      Basis              `json:"basis"`
}

type recordResponse struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedAt  time.Time `json:"uploaded_at"`

	IsShared bool `json:"is_shared"`
	// Solo para el owner.
	SharedWithUserIDs []string   `json:"shared_with_user_ids,omitempty"`
	LastSharedAt      *time.Time `json:"last_shared_at,omitempty"`

	Permission sharing.Permission `json:"permission"`
	Basis      Basis              `json:"basis"`
}

// accessibleIDsHandler godoc
// @Summary      Record ids visible to the caller
// @Tags         access
// @Produce      json
// @Success      200  {object}  accessibleResponse
// @Router       /access/records [get]
func accessibleIDsHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids, err := resolver.AccessibleRecordIDs(r.Context(), claims)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, accessibleResponse{
			Scope:     scopeFor(claims).String(),
			RecordIDs: ids,
		})
	}
}

// decisionHandler godoc
// @Summary      Access decision for one record
// @Tags         access
// @Produce      json
// @Param        recordID  path  string  true  "record id"
// @Success      200  {object}  decisionResponse
// @Failure      404  {string}  string
// @Router       /access/records/{recordID} [get]
func decisionHandler(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		recordID := chi.URLParam(r, "recordID")
		d, err := resolver.Permission(r.Context(), recordID, claims)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decisionResponse{
			RecordID:   recordID,
			CanAccess:  d.Allowed(),
			Permission: d.Permission,
			Basis:      d.Basis,
		})
	}
}

func listRecordsHandler(resolver *Resolver, reader RecordReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids, err := resolver.AccessibleRecordIDs(r.Context(), claims)
		if err != nil {
			writeError(w, err)
			return
		}
		items, err := reader.ListByIDs(r.Context(), ids)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			d, err := resolver.Permission(r.Context(), rec.ID, claims)
			if err != nil {
				// borrado entre el listado y la decisión
				if errors.Is(err, ErrNotFound) {
					continue
				}
				writeError(w, err)
				return
			}
			if !d.Allowed() {
				continue
			}
			out = append(out, toRecordResponse(rec, d, claims.UserID))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getRecordHandler(resolver *Resolver, reader RecordReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		recordID := chi.URLParam(r, "recordID")
		d, err := resolver.Permission(r.Context(), recordID, claims)
		if err != nil {
			writeError(w, err)
			return
		}
		if !d.Allowed() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		rec, err := reader.GetByID(r.Context(), recordID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec, d, claims.UserID))
	}
}

func toRecordResponse(rec records.Record, d Decision, viewerID string) recordResponse {
	out := recordResponse{
		ID:          rec.ID,
		OwnerUserID: rec.OwnerUserID,
		Filename:    rec.Filename,
		Format:      rec.Format,
		SizeBytes:   rec.SizeBytes,
		UploadedAt:  rec.UploadedAt,
		IsShared:    rec.IsShared,
		Permission:  d.Permission,
		Basis:       d.Basis,
	}
	if rec.OwnerUserID == viewerID {
		out.SharedWithUserIDs = rec.SharedWithUserIDs
		out.LastSharedAt = rec.LastSharedAt
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, records.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, records.ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
