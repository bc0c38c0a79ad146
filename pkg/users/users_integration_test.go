//go:build integration

package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/audit"
	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/storage"
)

func TestListAgainstPostgres(t *testing.T) {
	db := database.NewTestDB(t)

	blobs, err := storage.NewFileSystemStore(t.TempDir(), "http://files.local")
	require.NoError(t, err)
	store := NewStore(db)
	roles := rbac.NewStore(db)
	svc := NewService(Deps{
		DB:        db,
		Store:     store,
		Loaders:   NewLoaders(store, roles),
		Assembler: query.NewAssembler(db, nil),
		Authz:     rbac.NewEvaluator(roles, nil),
		Promoter:  assets.NewPromoter(assets.NewStore(db), blobs),
		Activity:  audit.NewRecorder(nil, time.Second),
	})

	_, err = db.ExecContext(context.Background(), `
		INSERT INTO users (id, uuid, email, name) VALUES
			('U1', 'uuid-1', 'ann@example.com', 'Ann Admin'),
			('U2', 'uuid-2', 'bob@example.com', 'Bob Coach'),
			('U3', 'uuid-3', 'anna@example.com', 'Anna Lee'),
			('U4', 'uuid-4', 'pat@example.com', 'Pat Parent'),
			('U5', 'uuid-5', 'carl@example.com', 'Carl Kid'),
			('U6', 'uuid-6', 'dana@example.com', 'Dana Parent');

		INSERT INTO schools (id, name) VALUES ('S1', 'Alpha'), ('S2', 'Beta');

		INSERT INTO user_roles (id, user_id, type, status, school_id, child_user_id) VALUES
			('R1', 'U1', 'ADMIN', 'ACTIVE', 'S1', NULL),
			('R2', 'U2', 'COACH', 'ACTIVE', 'S1', NULL),
			('R3', 'U3', 'ATHLETE', 'ACTIVE', 'S1', NULL),
			('R4', 'U2', 'COACH', 'ACTIVE', 'S2', NULL),
			('R5', 'U4', 'PARENT', 'ACTIVE', NULL, 'U3'),
			('R6', 'U4', 'PARENT', 'ACTIVE', NULL, 'U5'),
			('R7', 'U6', 'PARENT', 'ACTIVE', NULL, 'U3')`)
	require.NoError(t, err)

	byName := query.Order{{Field: "name", Direction: query.Asc}}

	tests := []struct {
		name    string
		page    query.PageRequest
		filter  Filter
		want    []string
		total   int
		hasNext bool
	}{
		{
			name: "school with roles and search",
			filter: Filter{
				From:   FromSchool,
				FromID: "S1",
				Roles:  []rbac.RoleType{rbac.RoleAdmin, rbac.RoleCoach},
				Search: "an",
			},
			want:  []string{"U1"},
			total: 1,
		},
		{
			name:   "school with roles",
			filter: Filter{From: FromSchool, FromID: "S1", Roles: []rbac.RoleType{rbac.RoleAdmin, rbac.RoleCoach}},
			want:   []string{"U1", "U2"},
			total:  2,
		},
		{
			name:   "parent with roles",
			filter: Filter{From: FromParent, FromID: "U4", Roles: []rbac.RoleType{rbac.RoleAthlete}},
			want:   []string{"U3"},
			total:  1,
		},
		{
			name:   "child with search",
			filter: Filter{From: FromChild, FromID: "U3", Search: "pat"},
			want:   []string{"U4"},
			total:  1,
		},
		{
			name:    "child paged",
			page:    query.PageRequest{Limit: 1},
			filter:  Filter{From: FromChild, FromID: "U3"},
			want:    []string{"U6"},
			total:   2,
			hasNext: true,
		},
		{
			name:   "roles with search",
			filter: Filter{Roles: []rbac.RoleType{rbac.RoleAthlete, rbac.RoleCoach}, Search: "bob"},
			want:   []string{"U2"},
			total:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(as(staff), tt.page, byName, tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, u := range page.Items {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, tt.total, page.TotalCount)
			assert.Equal(t, tt.hasNext, page.HasNextPage)
		})
	}
}
