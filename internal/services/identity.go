package services

import (
	"context"
	"errors"

	"github.com/anonto42/nano-midea/social/internal/repositories"
)

// IdentityResolver maps an authenticated external identity to its local
// profile id using the projection written by the event pipeline.
type IdentityResolver struct {
	mappings repositories.ProfileMappingRepository
}

func NewIdentityResolver(mappings repositories.ProfileMappingRepository) *IdentityResolver {
	return &IdentityResolver{mappings: mappings}
}

// Resolve returns ErrNotFound when the identity has not been propagated yet
func (r *IdentityResolver) Resolve(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", ErrNotFound
	}
	mapping, err := r.mappings.GetByExternalID(ctx, externalID)
	if err != nil {
		return "", storageErr("resolve identity", err)
	}
	return mapping.ProfileID, nil
}

// ResolveViewer is Resolve for read paths: an unknown identity is an
// anonymous viewer rather than an error.
func (r *IdentityResolver) ResolveViewer(ctx context.Context, externalID string) (string, error) {
	profileID, err := r.Resolve(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return profileID, err
}
