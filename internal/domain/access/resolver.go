package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/platform/metrics"
	"eeg-data-sharing/internal/ports/auth"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

// Basis explica por qué se otorgó (o no) una decisión.
type Basis string

const (
	BasisOwner      Basis = "owner"
	BasisAdmin      Basis = "admin"
	BasisDepartment Basis = "department"
	BasisShared     Basis = "shared"
	BasisNone       Basis = "none"
)

// Decision: Permission vacío siempre va con BasisNone y significa sin acceso.
type Decision struct {
	Permission sharing.Permission
	Basis      Basis
	// RequestID es el grant usado cuando Basis == shared.
	RequestID string
}

func (d Decision) Allowed() bool {
	return d.Basis != BasisNone
}

// RecordCatalog es la vista del store de registros que necesita el resolver.
type RecordCatalog interface {
	OwnerOf(ctx context.Context, recordID string) (string, error)
	AllIDs(ctx context.Context) ([]string, error)
	IDsByOwners(ctx context.Context, ownerUserIDs []string) ([]string, error)
}

type Directory interface {
	DepartmentOf(ctx context.Context, userID string) (string, error)
	DepartmentMemberIDs(ctx context.Context, department string) ([]string, error)
}

// Grants expone los grants vigentes del ledger (aceptados y no expirados).
type Grants interface {
	ActiveRecordIDs(ctx context.Context, userID string) ([]string, error)
	ActiveGrant(ctx context.Context, recordID, userID string) (sharing.Request, bool, error)
}

type Resolver struct {
	records   RecordCatalog
	directory Directory
	grants    Grants
	metrics   *metrics.Metrics
}

type Option func(*Resolver)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(catalog RecordCatalog, directory Directory, grants Grants, opts ...Option) *Resolver {
	r := &Resolver{records: catalog, directory: directory, grants: grants}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AccessibleRecordIDs une el alcance del tier con los grants vigentes. Ordenado, sin repetidos.
func (r *Resolver) AccessibleRecordIDs(ctx context.Context, p auth.Claims) ([]string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, ErrInvalidInput
	}

	var tier []string
	var err error
	switch scopeFor(p) {
	case ScopeAll:
		tier, err = r.records.AllIDs(ctx)
	case ScopeDepartment:
		var members []string
		members, err = r.directory.DepartmentMemberIDs(ctx, p.Department)
		if err == nil {
			tier, err = r.records.IDsByOwners(ctx, append(members, p.UserID))
		}
	default:
		tier, err = r.records.IDsByOwners(ctx, []string{p.UserID})
	}
	if err != nil {
		return nil, fmt.Errorf("tier records: %w", err)
	}

	shared, err := r.grants.ActiveRecordIDs(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("shared records: %w", err)
	}

	set := make(map[string]struct{}, len(tier)+len(shared))
	for _, id := range tier {
		set[id] = struct{}{}
	}
	for _, id := range shared {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// CanAccess coincide con la pertenencia a AccessibleRecordIDs, sin armar el set.
func (r *Resolver) CanAccess(ctx context.Context, recordID string, p auth.Claims) (bool, error) {
	d, err := r.Permission(ctx, recordID, p)
	if err != nil {
		return false, err
	}
	return d.Allowed(), nil
}

// Permission: owner, admin y jefe del departamento del owner tienen view_download
// sin mirar el ledger; si no, manda el grant vigente. Sin grant => BasisNone.
func (r *Resolver) Permission(ctx context.Context, recordID string, p auth.Claims) (Decision, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" || strings.TrimSpace(p.UserID) == "" {
		return Decision{}, ErrInvalidInput
	}

	ownerID, err := r.records.OwnerOf(ctx, recordID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return Decision{}, fmt.Errorf("%w: %s", ErrNotFound, recordID)
		}
		return Decision{}, err
	}

	d, err := r.decide(ctx, recordID, ownerID, p)
	if err != nil {
		return Decision{}, err
	}
	r.metrics.Decision(string(d.Basis))
	return d, nil
}

func (r *Resolver) decide(ctx context.Context, recordID, ownerID string, p auth.Claims) (Decision, error) {
	if ownerID == p.UserID {
		return Decision{Permission: sharing.PermissionViewDownload, Basis: BasisOwner}, nil
	}

	switch scopeFor(p) {
	case ScopeAll:
		return Decision{Permission: sharing.PermissionViewDownload, Basis: BasisAdmin}, nil
	case ScopeDepartment:
		dept, err := r.directory.DepartmentOf(ctx, ownerID)
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			return Decision{}, fmt.Errorf("owner department: %w", err)
		}
		if dept != "" && dept == p.Department {
			return Decision{Permission: sharing.PermissionViewDownload, Basis: BasisDepartment}, nil
		}
	}

	grant, ok, err := r.grants.ActiveGrant(ctx, recordID, p.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("active grant: %w", err)
	}
	if !ok {
		return Decision{Basis: BasisNone}, nil
	}
	return Decision{Permission: grant.Permission, Basis: BasisShared, RequestID: grant.ID}, nil
}
