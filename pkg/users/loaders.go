package users

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// Loaders are the batched lookups of this package
type Loaders struct {
	Users             loader.Definition[string, *User]
	Roles             loader.Definition[loader.RelationKey, []rbac.Role]
	NotificationCount loader.Definition[loader.RelationKey, int]
}

// NewLoaders defines the loaders backed by the user and role stores
func NewLoaders(store *Store, roles *rbac.Store) *Loaders {
	return &Loaders{
		Users: loader.NewEntityLoader("users.byID", store.ByIDs),
		Roles: loader.NewRelationLoader("roles.byUser", func(ctx context.Context, keys []loader.RelationKey) (map[loader.RelationKey][]rbac.Role, error) {
			byUser, err := roles.RolesForUsers(ctx, ownerIDs(keys))
			if err != nil {
				return nil, err
			}

			out := make(map[loader.RelationKey][]rbac.Role, len(keys))
			for _, key := range keys {
				args, err := loader.DecodeArgs[RolesArgs](key)
				if err != nil {
					return nil, err
				}
				out[key] = filterRoles(byUser[key.OwnerID], args.Status)
			}
			return out, nil
		}),
		NotificationCount: loader.NewRelationLoader("users.notificationCount", func(ctx context.Context, keys []loader.RelationKey) (map[loader.RelationKey]int, error) {
			counts, err := store.NotificationCounts(ctx, ownerIDs(keys))
			if err != nil {
				return nil, err
			}

			out := make(map[loader.RelationKey]int, len(keys))
			for _, key := range keys {
				if n, ok := counts[key.OwnerID]; ok {
					out[key] = n
				}
			}
			return out, nil
		}),
	}
}

func filterRoles(roles []rbac.Role, status *rbac.RoleStatus) []rbac.Role {
	out := []rbac.Role{}
	for _, r := range roles {
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	return out
}

func ownerIDs(keys []loader.RelationKey) []string {
	seen := make(map[string]bool, len(keys))
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k.OwnerID] {
			seen[k.OwnerID] = true
			ids = append(ids, k.OwnerID)
		}
	}
	return ids
}
