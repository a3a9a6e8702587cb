package resolver

import (
	"context"
	"errors"
	userserrors "slotswap/internal/users/errors"
	"slotswap/internal/users/repository"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
)

// DisplayNameResolver turns user ids into display names. Resolution never
// fails: unknown users and lookup errors yield model.UnknownUserName.
type DisplayNameResolver interface {
	ResolveDisplayName(ctx context.Context, userID string) string
	ResolveDisplayNames(ctx context.Context, userIDs []string) map[string]string
}

type directoryResolver struct {
	users repository.UserRepository
	log   *logger.Logger
}

func NewDirectoryResolver(users repository.UserRepository, log *logger.Logger) DisplayNameResolver {
	return &directoryResolver{users: users, log: log}
}

func (r *directoryResolver) ResolveDisplayName(ctx context.Context, userID string) string {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, userserrors.ErrNotFound) {
			r.log.WithContext(ctx).Warn("Failed to resolve display name", "user_id", userID, "error", err)
		}
		return model.UnknownUserName
	}
	return user.DisplayName()
}

func (r *directoryResolver) ResolveDisplayNames(ctx context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	users, err := r.users.FindByIDs(ctx, unique(userIDs))
	if err != nil {
		r.log.WithContext(ctx).Warn("Failed to resolve display names", "count", len(userIDs), "error", err)
		users = nil
	}
	for _, id := range userIDs {
		names[id] = users[id].DisplayName()
	}
	return names
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
