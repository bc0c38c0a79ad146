package schools

import (
	"context"

	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// Loaders are the batched lookups of this package
type Loaders struct {
	Schools     loader.Definition[string, *School]
	MemberCount loader.Definition[loader.RelationKey, int]
}

// NewLoaders defines the loaders backed by store. Member counts for every
// status come back in one query and are summed per key.
func NewLoaders(store *Store) *Loaders {
	return &Loaders{
		Schools: loader.NewEntityLoader("schools.byID", store.ByIDs),
		MemberCount: loader.NewRelationLoader("schools.memberCount", func(ctx context.Context, keys []loader.RelationKey) (map[loader.RelationKey]int, error) {
			ids := make([]string, 0, len(keys))
			seen := make(map[string]bool, len(keys))
			for _, k := range keys {
				if !seen[k.OwnerID] {
					seen[k.OwnerID] = true
					ids = append(ids, k.OwnerID)
				}
			}

			counts, err := store.MemberCounts(ctx, ids)
			if err != nil {
				return nil, err
			}

			out := make(map[loader.RelationKey]int, len(keys))
			for _, key := range keys {
				args, err := loader.DecodeArgs[MemberCountArgs](key)
				if err != nil {
					return nil, err
				}
				out[key] = sumStatus(counts[key.OwnerID], args.Status)
			}
			return out, nil
		}),
	}
}

func sumStatus(byStatus map[rbac.RoleStatus]int, status *rbac.RoleStatus) int {
	if status != nil {
		return byStatus[*status]
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	return total
}
