package schools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/audit"
	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// Operation names used for authorization and metrics
const (
	OpSchools      = "schools"
	OpSchool       = "school"
	OpCreateSchool = "createSchool"
	OpUpdateSchool = "updateSchool"
)

// Deps are the collaborators of the school service
type Deps struct {
	DB        database.DB
	Store     *Store
	Loaders   *Loaders
	Assembler *query.Assembler
	Authz     *rbac.Evaluator
	Promoter  *assets.Promoter
	Activity  *audit.Recorder
}

// Service implements the school operations
type Service struct {
	Deps
}

// NewService creates a school service
func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

// List returns a page of schools. Staff only.
func (s *Service) List(ctx context.Context, page query.PageRequest, order query.Order, filter Filter) (*query.Page[School], error) {
	orderBy, err := orderSchema.Compose(order)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.Authorize(ctx, OpSchools, listPolicy); err != nil {
		return nil, err
	}

	result, err := query.Assemble[School](ctx, s.Assembler, Listing(filter, orderBy), page)
	if err != nil {
		return nil, err
	}
	for i := range result.Items {
		school := result.Items[i]
		s.Loaders.Schools.Prime(ctx, school.ID, &school)
	}
	return result, nil
}

// Get returns the school with id
func (s *Service) Get(ctx context.Context, id string) (*School, error) {
	school, err := s.Loaders.Schools.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.Authorize(ctx, OpSchool, viewPolicy(id)); err != nil {
		return nil, err
	}
	return school, nil
}

// Create inserts a school. When in.UserID is set that user becomes the
// school's active admin in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*School, error) {
	if err := s.Authz.Authorize(ctx, OpCreateSchool, createPolicy(in)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var school *School
	err := database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var err error
		if school, err = Create(ctx, tx, in.Name, in.Phone); err != nil {
			return err
		}
		if in.UserID == nil || *in.UserID == "" {
			return nil
		}
		return rbac.CreateRole(ctx, tx, &rbac.Role{
			UserID:     *in.UserID,
			Type:       rbac.RoleAdmin,
			Status:     rbac.StatusActive,
			SchoolRole: &rbac.SchoolRole{SchoolID: school.ID},
		})
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("school_id", school.ID).Info("school created")
	s.Activity.Record(ctx, audit.KindSchoolCreated, school.ID)
	return school, nil
}

// Update changes school id. Logo and cover uploads are copied to fresh blob
// names before the transaction and recorded as images inside it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*School, error) {
	if err := s.Authz.Authorize(ctx, OpUpdateSchool, updatePolicy(id)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	logo, err := s.stage(ctx, in.Logo, fmt.Sprintf("schools/%s/logo-%s", id, uuid.NewString()))
	if err != nil {
		return nil, err
	}
	cover, err := s.stage(ctx, in.Cover, fmt.Sprintf("schools/%s/cover-%s", id, uuid.NewString()))
	if err != nil {
		s.Promoter.Discard(ctx, logo)
		return nil, err
	}

	var school *School
	err = database.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		changes := Changes{Name: in.Name, Phone: in.Phone}
		if logo != nil {
			img, err := logo.Apply(ctx, tx)
			if err != nil {
				return err
			}
			changes.LogoID = &img.ID
		}
		if cover != nil {
			img, err := cover.Apply(ctx, tx)
			if err != nil {
				return err
			}
			changes.CoverID = &img.ID
		}

		var err error
		school, err = Update(ctx, tx, id, changes)
		return err
	})
	if err != nil {
		s.Promoter.Discard(ctx, logo, cover)
		return nil, err
	}

	s.Activity.Record(ctx, audit.KindSchoolUpdated, id)
	return school, nil
}

// stage promotes uploadID when set
func (s *Service) stage(ctx context.Context, uploadID *string, dest string) (*assets.Promotion, error) {
	if uploadID == nil || *uploadID == "" {
		return nil, nil
	}
	return s.Promoter.Stage(ctx, *uploadID, dest)
}

// MemberCount resolves the memberCount relation. A nil status counts every
// member role.
func (s *Service) MemberCount(ctx context.Context, schoolID string, status *rbac.RoleStatus) (int, error) {
	key, err := loader.NewRelationKey(schoolID, MemberCountArgs{Status: status})
	if err != nil {
		return 0, err
	}
	return s.Loaders.MemberCount.Load(ctx, key)
}
