package sharing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/platform/logger"
	"eeg-data-sharing/internal/platform/metrics"

	"github.com/google/uuid"
)

const maxMessageLen = 1000

// RecordStore es lo mínimo que el ledger necesita del store de registros.
type RecordStore interface {
	OwnerOf(ctx context.Context, recordID string) (string, error)
	AddSharedUser(ctx context.Context, recordID, userID string, at time.Time) error
	RemoveSharedUser(ctx context.Context, recordID, userID string) error
	SetSharedFlag(ctx context.Context, recordID string, shared bool) error
}

// RecipientResolver traduce el atributo del destinatario (email) a un userID.
type RecipientResolver interface {
	ResolveRecipient(ctx context.Context, email string) (string, error)
}

type Service struct {
	repo       Repository
	records    RecordStore
	recipients RecipientResolver

	now     func() time.Time
	log     logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, recordStore RecordStore, recipients RecipientResolver, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		records:    recordStore,
		recipients: recipients,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	RequesterID    string
	RecordID       string
	RecipientEmail string
	Permission     Permission // vacío => view_only
	Message        string
	ExpiresAt      *time.Time
}

// CreateRequest crea una entrada pending. No toca el registro todavía.
// Un expiresAt ya vencido se acepta aquí; Accept lo resolverá como expirado.
func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (Request, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	recordID := strings.TrimSpace(in.RecordID)

	if requesterID == "" || recordID == "" || strings.TrimSpace(in.RecipientEmail) == "" {
		return Request{}, ErrInvalidInput
	}

	perm, err := ParsePermission(string(in.Permission))
	if err != nil {
		return Request{}, fmt.Errorf("%w: unknown permission %q", err, in.Permission)
	}

	msg := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(msg) > maxMessageLen {
		return Request{}, fmt.Errorf("%w: message longer than %d chars", ErrInvalidInput, maxMessageLen)
	}

	ownerID, err := s.records.OwnerOf(ctx, recordID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return Request{}, fmt.Errorf("%w: record %s", ErrNotFound, recordID)
		}
		return Request{}, err
	}
	if ownerID != requesterID {
		return Request{}, fmt.Errorf("%w: only the record owner can share it", ErrUnauthorized)
	}

	recipientID, err := s.recipients.ResolveRecipient(ctx, in.RecipientEmail)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			return Request{}, fmt.Errorf("%w: recipient %s", ErrNotFound, users.NormalizeEmail(in.RecipientEmail))
		case errors.Is(err, users.ErrInvalidInput):
			return Request{}, fmt.Errorf("%w: recipient email", ErrInvalidInput)
		default:
			return Request{}, err
		}
	}
	if recipientID == requesterID {
		return Request{}, fmt.Errorf("%w: cannot share a record with yourself", ErrInvalidInput)
	}

	r := Request{
		ID:               uuid.NewString(),
		RecordID:         recordID,
		SharedByUserID:   requesterID,
		SharedWithUserID: recipientID,
		Permission:       perm,
		Status:           StatusPending,
		RequestedAt:      s.now(),
	}
	if msg != "" {
		r.Message = &msg
	}
	if in.ExpiresAt != nil {
		t := in.ExpiresAt.UTC()
		r.ExpiresAt = &t
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return Request{}, err
	}

	s.metrics.Transition("", string(StatusPending))
	s.log.Info("sharing request created", map[string]any{
		"request_id": r.ID,
		"record_id":  r.RecordID,
		"shared_by":  r.SharedByUserID,
		"shared_to":  r.SharedWithUserID,
		"permission": string(r.Permission),
	})
	return r, nil
}

// Accept: solo el destinatario, solo desde pending.
// Si el deadline ya pasó, la entrada se marca expired y se devuelve ErrExpired.
func (s *Service) Accept(ctx context.Context, requestID, actingUserID string) (Request, error) {
	r, actor, err := s.load(ctx, requestID, actingUserID)
	if err != nil {
		return Request{}, err
	}

	if r.SharedWithUserID != actor {
		return Request{}, fmt.Errorf("%w: only the recipient can accept", ErrUnauthorized)
	}
	if r.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: request is already %s", ErrInvalidState, r.Status)
	}

	now := s.now()
	if r.ExpiredAt(now) {
		expired, err := s.apply(ctx, r, StatusExpired, now)
		if err != nil {
			return Request{}, err
		}
		return expired, fmt.Errorf("%w: deadline was %s", ErrExpired, r.ExpiresAt.Format(time.RFC3339))
	}

	accepted, err := s.apply(ctx, r, StatusAccepted, now)
	if err != nil {
		return Request{}, err
	}

	// El ledger ya es la fuente de verdad; el set del registro es cache.
	if err := s.records.AddSharedUser(ctx, r.RecordID, actor, now); err != nil {
		s.log.Error("record shared-set add failed", map[string]any{
			"request_id": r.ID,
			"record_id":  r.RecordID,
			"error":      err,
		})
	}
	// Un Revoke o Sweep pudo cerrar la entrada entre el CAS y el add: su
	// reconcile corrió antes y no quitó nada. Se vuelve a mirar el ledger.
	if err := s.reconcile(ctx, r.RecordID, actor, now); err != nil {
		s.log.Error("record reconcile after accept failed", map[string]any{
			"request_id": r.ID,
			"record_id":  r.RecordID,
			"error":      err,
		})
	}
	return accepted, nil
}

// Reject: solo el destinatario, solo desde pending. Sin efecto en el registro.
func (s *Service) Reject(ctx context.Context, requestID, actingUserID string) (Request, error) {
	r, actor, err := s.load(ctx, requestID, actingUserID)
	if err != nil {
		return Request{}, err
	}

	if r.SharedWithUserID != actor {
		return Request{}, fmt.Errorf("%w: only the recipient can reject", ErrUnauthorized)
	}
	if r.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: request is already %s", ErrInvalidState, r.Status)
	}

	return s.apply(ctx, r, StatusRejected, s.now())
}

// Revoke: solo quien compartió, desde pending o accepted.
// La reconciliación del registro se decide con el estado previo a la transición.
func (s *Service) Revoke(ctx context.Context, requestID, actingUserID string) (Request, error) {
	r, actor, err := s.load(ctx, requestID, actingUserID)
	if err != nil {
		return Request{}, err
	}

	if r.SharedByUserID != actor {
		return Request{}, fmt.Errorf("%w: only the sharer can revoke", ErrUnauthorized)
	}

	prev := r.Status
	if prev != StatusPending && prev != StatusAccepted {
		return Request{}, fmt.Errorf("%w: request is already %s", ErrInvalidState, prev)
	}

	now := s.now()
	revoked, err := s.apply(ctx, r, StatusRevoked, now)
	if err != nil {
		return Request{}, err
	}

	if prev == StatusAccepted {
		if err := s.reconcile(ctx, r.RecordID, r.SharedWithUserID, now); err != nil {
			s.log.Error("record reconcile after revoke failed", map[string]any{
				"request_id": r.ID,
				"record_id":  r.RecordID,
				"error":      err,
			})
		}
	}
	return revoked, nil
}

// Get devuelve la entrada si userID es una de las partes. Para terceros es ErrNotFound.
func (s *Service) Get(ctx context.Context, requestID, userID string) (Request, error) {
	r, actor, err := s.load(ctx, requestID, userID)
	if err != nil {
		return Request{}, err
	}
	if !r.InvolvesUser(actor) {
		return Request{}, fmt.Errorf("%w: sharing request %s", ErrNotFound, r.ID)
	}
	return r, nil
}

// ListIncoming: entradas donde userID es destinatario, más recientes primero.
func (s *Service) ListIncoming(ctx context.Context, userID string, statuses map[Status]struct{}) ([]Request, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListBySharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sortAndFilter(items, statuses), nil
}

// ListOutgoing: entradas donde userID compartió, más recientes primero.
func (s *Service) ListOutgoing(ctx context.Context, userID string, statuses map[Status]struct{}) ([]Request, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.ListBySharedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sortAndFilter(items, statuses), nil
}

// ListByRecord: historial de sharing de un registro, solo para su owner.
func (s *Service) ListByRecord(ctx context.Context, recordID, actingUserID string) ([]Request, error) {
	recordID = strings.TrimSpace(recordID)
	actingUserID = strings.TrimSpace(actingUserID)
	if recordID == "" || actingUserID == "" {
		return nil, ErrInvalidInput
	}

	ownerID, err := s.records.OwnerOf(ctx, recordID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, fmt.Errorf("%w: record %s", ErrNotFound, recordID)
		}
		return nil, err
	}
	if ownerID != actingUserID {
		return nil, fmt.Errorf("%w: only the record owner can list its sharing", ErrUnauthorized)
	}

	items, err := s.repo.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return sortAndFilter(items, nil), nil
}

// ActiveRecordIDs devuelve los registros con un grant aceptado y vigente para userID.
func (s *Service) ActiveRecordIDs(ctx context.Context, userID string) ([]string, error) {
	items, err := s.repo.ListAccepted(ctx, AcceptedFilter{SharedWithUserID: userID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, r := range items {
		if !r.GrantsAccess(now) {
			continue
		}
		if _, ok := seen[r.RecordID]; ok {
			continue
		}
		seen[r.RecordID] = struct{}{}
		out = append(out, r.RecordID)
	}
	return out, nil
}

// ActiveGrant busca el grant vigente para (recordID, userID).
// Si por grants sucesivos hubiera más de uno, gana el aceptado más reciente.
func (s *Service) ActiveGrant(ctx context.Context, recordID, userID string) (Request, bool, error) {
	items, err := s.repo.ListAccepted(ctx, AcceptedFilter{RecordID: recordID, SharedWithUserID: userID})
	if err != nil {
		return Request{}, false, err
	}

	now := s.now()
	var winner Request
	has := false
	for _, r := range items {
		if !r.GrantsAccess(now) {
			continue
		}
		if !has || acceptedAfter(r, winner) {
			winner = r
			has = true
		}
	}
	return winner, has, nil
}

func (s *Service) load(ctx context.Context, requestID, userID string) (Request, string, error) {
	requestID = strings.TrimSpace(requestID)
	userID = strings.TrimSpace(userID)
	if requestID == "" || userID == "" {
		return Request{}, "", ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, "", err
	}
	return r, userID, nil
}

// apply calcula la transición y la persiste con CAS sobre el estado previo.
func (s *Service) apply(ctx context.Context, r Request, to Status, now time.Time) (Request, error) {
	next, err := r.transition(to, now)
	if err != nil {
		return Request{}, err
	}
	if err := s.repo.UpdateStatus(ctx, next, r.Status); err != nil {
		return Request{}, err
	}

	s.metrics.Transition(string(r.Status), string(to))
	s.log.Info("sharing request transitioned", map[string]any{
		"request_id": r.ID,
		"record_id":  r.RecordID,
		"from":       string(r.Status),
		"to":         string(to),
	})
	return next, nil
}

// reconcile recalcula el cache del registro tras sacar un grant aceptado.
// El usuario se quita solo si ningún otro grant vigente le da acceso;
// isShared queda en true si queda algún grant vigente para el registro.
func (s *Service) reconcile(ctx context.Context, recordID, userID string, now time.Time) error {
	remaining, err := s.repo.ListAccepted(ctx, AcceptedFilter{RecordID: recordID})
	if err != nil {
		return fmt.Errorf("list accepted for record %s: %w", recordID, err)
	}

	userStillGranted := false
	anyGranted := false
	for _, g := range remaining {
		if !g.GrantsAccess(now) {
			continue
		}
		anyGranted = true
		if g.SharedWithUserID == userID {
			userStillGranted = true
		}
	}

	if !userStillGranted {
		if err := s.records.RemoveSharedUser(ctx, recordID, userID); err != nil {
			return fmt.Errorf("remove shared user: %w", err)
		}
	}
	if err := s.records.SetSharedFlag(ctx, recordID, anyGranted); err != nil {
		return fmt.Errorf("set shared flag: %w", err)
	}
	return nil
}

func sortAndFilter(items []Request, statuses map[Status]struct{}) []Request {
	out := make([]Request, 0, len(items))
	for _, r := range items {
		if len(statuses) > 0 {
			if _, ok := statuses[r.Status]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out
}

func acceptedAfter(a, b Request) bool {
	switch {
	case a.AcceptedAt == nil:
		return false
	case b.AcceptedAt == nil:
		return true
	default:
		return a.AcceptedAt.After(*b.AcceptedAt)
	}
}
