package records

import "context"

// OwnerOf expone el ownerUserID de un registro.
// Se usa para que sharing y access no dependan del modelo completo.
func (s *Service) OwnerOf(ctx context.Context, recordID string) (string, error) {
	r, err := s.GetByID(ctx, recordID)
	if err != nil {
		return "", err
	}
	return r.OwnerUserID, nil
}
