package sharing

import (
	"fmt"
	"strings"
	"time"
)

// Status es un enum cerrado; las transiciones legales están en transitions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// transitions define el grafo. Los estados sin salida son terminales.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected, StatusRevoked, StatusExpired},
	StatusAccepted: {StatusRevoked, StatusExpired},
	StatusRejected: nil,
	StatusRevoked:  nil,
	StatusExpired:  nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatusFilter parsea "pending,accepted" (CSV opcional).
func ParseStatusFilter(raw string) (map[Status]struct{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := map[Status]struct{}{}
	for _, p := range strings.Split(raw, ",") {
		s := Status(strings.ToLower(strings.TrimSpace(p)))
		if s == "" {
			continue
		}
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
		}
		out[s] = struct{}{}
	}
	return out, nil
}

// transition devuelve una copia en el estado to, con los timestamps que correspondan.
// No muta r: el llamador conserva el estado previo para el CAS y la reconciliación.
func (r Request) transition(to Status, now time.Time) (Request, error) {
	if !r.Status.CanTransitionTo(to) {
		return Request{}, fmt.Errorf("%w: cannot move request from %s to %s", ErrInvalidState, r.Status, to)
	}

	next := r
	next.Status = to

	switch to {
	case StatusAccepted:
		t := now
		next.AcceptedAt = &t
	case StatusRejected:
		t := now
		next.RejectedAt = &t
	}
	return next, nil
}
