package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/assets"
	"github.com/platinummonkey/huddle/pkg/config"
	"github.com/platinummonkey/huddle/pkg/observability"
	"github.com/platinummonkey/huddle/pkg/query"
	"github.com/platinummonkey/huddle/pkg/rbac"
	"github.com/platinummonkey/huddle/pkg/schools"
	"github.com/platinummonkey/huddle/pkg/users"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the root GraphQL resolver
type Resolver struct {
	users     UserService
	schools   SchoolService
	relations Relations
}

// NewResolver creates the root resolver
func NewResolver(u UserService, s SchoolService, relations Relations) *Resolver {
	return &Resolver{users: u, schools: s, relations: relations}
}

// NewGraphQLHandler parses the schema against r and returns the HTTP handler
func NewGraphQLHandler(r *Resolver, cfg config.GraphQLConfig) (http.Handler, error) {
	var opts []graphql.SchemaOpt
	if cfg.MaxParallelism > 0 {
		opts = append(opts, graphql.MaxParallelism(cfg.MaxParallelism))
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(cfg.MaxDepth))
	}

	schema, err := graphql.ParseSchema(schemaSDL, r, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse graphql schema: %w", err)
	}
	return &relay.Handler{Schema: schema}, nil
}

// resolverError carries the error code into the response extensions
type resolverError struct {
	message string
	code    string
}

func (e *resolverError) Error() string {
	return e.message
}

// Extensions is read by graphql-go when building the response
func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// toGraphQL maps err through the error taxonomy. Internal errors are logged
// and reported without detail.
func toGraphQL(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsInternal(err) {
		observability.FromContext(ctx).WithError(err).Error("graphql resolver failed")
		return &resolverError{message: "internal server error", code: apperrors.Code(err)}
	}
	return &resolverError{message: err.Error(), code: apperrors.Code(err)}
}

// optional turns a missing related entity into a null field
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Inputs

type pageInput struct {
	Offset *int32
	Limit  *int32
}

func (p *pageInput) request() query.PageRequest {
	var req query.PageRequest
	if p == nil {
		return req
	}
	if p.Offset != nil {
		req.Offset = int(*p.Offset)
	}
	if p.Limit != nil {
		req.Limit = int(*p.Limit)
	}
	return req
}

type userOrderInput struct {
	CreatedAt *string
	Name      *string
	Email     *string
	Roles     *string
}

type schoolOrderInput struct {
	CreatedAt   *string
	Name        *string
	Phone       *string
	MemberCount *string
	Address     *string
}

type orderField struct {
	name      string
	direction *string
}

// orderTerm converts one order element, which must name exactly one field
func orderTerm(fields ...orderField) (query.OrderTerm, error) {
	var term query.OrderTerm
	set := 0
	for _, f := range fields {
		if f.direction == nil {
			continue
		}
		set++
		dir, err := query.ParseDirection(*f.direction)
		if err != nil {
			return term, err
		}
		term = query.OrderTerm{Field: f.name, Direction: dir}
	}
	if set != 1 {
		return term, apperrors.Validation("each order element must name exactly one field, got %d", set)
	}
	return term, nil
}

func userOrder(in *[]userOrderInput) (query.Order, error) {
	if in == nil {
		return nil, nil
	}
	order := make(query.Order, 0, len(*in))
	for _, o := range *in {
		term, err := orderTerm(
			orderField{"createdAt", o.CreatedAt},
			orderField{"name", o.Name},
			orderField{"email", o.Email},
			orderField{"roles", o.Roles},
		)
		if err != nil {
			return nil, err
		}
		order = append(order, term)
	}
	return order, nil
}

func schoolOrder(in *[]schoolOrderInput) (query.Order, error) {
	if in == nil {
		return nil, nil
	}
	order := make(query.Order, 0, len(*in))
	for _, o := range *in {
		term, err := orderTerm(
			orderField{"createdAt", o.CreatedAt},
			orderField{"name", o.Name},
			orderField{"phone", o.Phone},
			orderField{"memberCount", o.MemberCount},
			orderField{"address", o.Address},
		)
		if err != nil {
			return nil, err
		}
		order = append(order, term)
	}
	return order, nil
}

type userFilterInput struct {
	From   *string
	FromID *graphql.ID
	Search *string
	Roles  *[]string
}

func (in *userFilterInput) filter() (users.Filter, error) {
	var f users.Filter
	if in == nil {
		return f, nil
	}
	if in.From != nil {
		from, err := users.ParseFrom(*in.From)
		if err != nil {
			return f, err
		}
		f.From = from
	}
	if in.FromID != nil {
		f.FromID = string(*in.FromID)
	}
	if in.Search != nil {
		f.Search = *in.Search
	}
	if in.Roles != nil {
		f.Roles = make([]rbac.RoleType, 0, len(*in.Roles))
		for _, raw := range *in.Roles {
			t, err := rbac.ParseRoleType(raw)
			if err != nil {
				return f, err
			}
			f.Roles = append(f.Roles, t)
		}
	}
	return f, nil
}

type schoolFilterInput struct {
	Search *string
}

func parseStatusArg(raw *string) (*rbac.RoleStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := rbac.ParseRoleStatus(*raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func idPtr(id *graphql.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

// Queries

// Users resolves Query.users
func (r *Resolver) Users(ctx context.Context, args struct {
	Page   *pageInput
	Order  *[]userOrderInput
	Filter *userFilterInput
}) (*userPageResolver, error) {
	order, err := userOrder(args.Order)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	filter, err := args.Filter.filter()
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}

	page, err := r.users.List(ctx, args.Page.request(), order, filter)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &userPageResolver{root: r, page: page}, nil
}

// User resolves Query.user
func (r *Resolver) User(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	u, err := r.users.Get(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &userResolver{root: r, u: u}, nil
}

// Schools resolves Query.schools
func (r *Resolver) Schools(ctx context.Context, args struct {
	Page   *pageInput
	Order  *[]schoolOrderInput
	Filter *schoolFilterInput
}) (*schoolPageResolver, error) {
	order, err := schoolOrder(args.Order)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	var filter schools.Filter
	if args.Filter != nil && args.Filter.Search != nil {
		filter.Search = *args.Filter.Search
	}

	page, err := r.schools.List(ctx, args.Page.request(), order, filter)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &schoolPageResolver{root: r, page: page}, nil
}

// School resolves Query.school
func (r *Resolver) School(ctx context.Context, args struct{ ID graphql.ID }) (*schoolResolver, error) {
	s, err := r.schools.Get(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &schoolResolver{root: r, s: s}, nil
}

// Mutations

// CreateSchool resolves Mutation.createSchool
func (r *Resolver) CreateSchool(ctx context.Context, args struct {
	Input struct {
		UserID *graphql.ID
		Name   string
		Phone  *string
	}
}) (*schoolResolver, error) {
	s, err := r.schools.Create(ctx, schools.CreateInput{
		UserID: idPtr(args.Input.UserID),
		Name:   args.Input.Name,
		Phone:  args.Input.Phone,
	})
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &schoolResolver{root: r, s: s}, nil
}

// UpdateSchool resolves Mutation.updateSchool
func (r *Resolver) UpdateSchool(ctx context.Context, args struct {
	ID    graphql.ID
	Input struct {
		Name  *string
		Phone *string
		Logo  *graphql.ID
		Cover *graphql.ID
	}
}) (*schoolResolver, error) {
	s, err := r.schools.Update(ctx, string(args.ID), schools.UpdateInput{
		Name:  args.Input.Name,
		Phone: args.Input.Phone,
		Logo:  idPtr(args.Input.Logo),
		Cover: idPtr(args.Input.Cover),
	})
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &schoolResolver{root: r, s: s}, nil
}

// UpdateUser resolves Mutation.updateUser
func (r *Resolver) UpdateUser(ctx context.Context, args struct {
	ID    graphql.ID
	Input struct {
		Name     *string
		NewEmail *string
	}
}) (*userResolver, error) {
	u, err := r.users.Update(ctx, string(args.ID), users.UpdateInput{
		Name:     args.Input.Name,
		NewEmail: args.Input.NewEmail,
	})
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &userResolver{root: r, u: u}, nil
}

// UpdateUserParentalApproval resolves Mutation.updateUserParentalApproval
func (r *Resolver) UpdateUserParentalApproval(ctx context.Context, args struct {
	ID                graphql.ID
	Approve           bool
	SignatureUploadID *graphql.ID
}) (bool, error) {
	ok, err := r.users.UpdateParentalApproval(ctx, string(args.ID), users.ParentalApprovalInput{
		Approve:           args.Approve,
		SignatureUploadID: idPtr(args.SignatureUploadID),
	})
	return ok, toGraphQL(ctx, err)
}

// Pages

type userPageResolver struct {
	root *Resolver
	page *query.Page[users.User]
}

func (p *userPageResolver) Items() []*userResolver {
	out := make([]*userResolver, len(p.page.Items))
	for i := range p.page.Items {
		out[i] = &userResolver{root: p.root, u: &p.page.Items[i]}
	}
	return out
}

func (p *userPageResolver) TotalCount() int32 { return int32(p.page.TotalCount) }
func (p *userPageResolver) Offset() int32     { return int32(p.page.Offset) }
func (p *userPageResolver) Limit() int32      { return int32(p.page.Limit) }
func (p *userPageResolver) HasNextPage() bool { return p.page.HasNextPage }

type schoolPageResolver struct {
	root *Resolver
	page *query.Page[schools.School]
}

func (p *schoolPageResolver) Items() []*schoolResolver {
	out := make([]*schoolResolver, len(p.page.Items))
	for i := range p.page.Items {
		out[i] = &schoolResolver{root: p.root, s: &p.page.Items[i]}
	}
	return out
}

func (p *schoolPageResolver) TotalCount() int32 { return int32(p.page.TotalCount) }
func (p *schoolPageResolver) Offset() int32     { return int32(p.page.Offset) }
func (p *schoolPageResolver) Limit() int32      { return int32(p.page.Limit) }
func (p *schoolPageResolver) HasNextPage() bool { return p.page.HasNextPage }

// Objects

type userResolver struct {
	root *Resolver
	u    *users.User
}

func (r *userResolver) ID() graphql.ID           { return graphql.ID(r.u.ID) }
func (r *userResolver) Email() string            { return r.u.Email }
func (r *userResolver) NewEmail() *string        { return r.u.NewEmail }
func (r *userResolver) Name() string             { return r.u.Name }
func (r *userResolver) IsStaff() bool            { return r.u.IsStaff }
func (r *userResolver) EmailConfirmed() bool     { return r.u.EmailConfirmed }
func (r *userResolver) ParentalApproval() *bool  { return r.u.ParentalApproval }
func (r *userResolver) CreatedAt() graphql.Time  { return graphql.Time{Time: r.u.CreatedAt} }

func (r *userResolver) Platforms() []string {
	platforms := r.u.Platforms()
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = string(p)
	}
	return out
}

func (r *userResolver) Avatar(ctx context.Context) (*imageResolver, error) {
	if r.u.AvatarID == nil {
		return nil, nil
	}
	img, err := optional(r.root.relations.Image(ctx, *r.u.AvatarID))
	if err != nil || img == nil {
		return nil, toGraphQL(ctx, err)
	}
	return &imageResolver{img}, nil
}

func (r *userResolver) NotificationCount(ctx context.Context) (int32, error) {
	n, err := r.root.users.NotificationCount(ctx, r.u.ID)
	return int32(n), toGraphQL(ctx, err)
}

func (r *userResolver) Roles(ctx context.Context, args struct{ Status *string }) ([]*roleResolver, error) {
	status, err := parseStatusArg(args.Status)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	roles, err := r.root.users.Roles(ctx, r.u.ID, status)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}

	out := make([]*roleResolver, len(roles))
	for i := range roles {
		out[i] = &roleResolver{root: r.root, role: roles[i]}
	}
	return out, nil
}

type schoolResolver struct {
	root *Resolver
	s    *schools.School
}

func (r *schoolResolver) ID() graphql.ID          { return graphql.ID(r.s.ID) }
func (r *schoolResolver) Name() string            { return r.s.Name }
func (r *schoolResolver) Phone() *string          { return r.s.Phone }
func (r *schoolResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.s.CreatedAt} }

func (r *schoolResolver) Address(ctx context.Context) (*addressResolver, error) {
	if r.s.AddressID == nil {
		return nil, nil
	}
	a, err := optional(r.root.relations.Address(ctx, *r.s.AddressID))
	if err != nil || a == nil {
		return nil, toGraphQL(ctx, err)
	}
	return &addressResolver{a}, nil
}

func (r *schoolResolver) Logo(ctx context.Context) (*imageResolver, error) {
	return r.image(ctx, r.s.LogoID)
}

func (r *schoolResolver) Cover(ctx context.Context) (*imageResolver, error) {
	return r.image(ctx, r.s.CoverID)
}

func (r *schoolResolver) image(ctx context.Context, id *string) (*imageResolver, error) {
	if id == nil {
		return nil, nil
	}
	img, err := optional(r.root.relations.Image(ctx, *id))
	if err != nil || img == nil {
		return nil, toGraphQL(ctx, err)
	}
	return &imageResolver{img}, nil
}

func (r *schoolResolver) MemberCount(ctx context.Context, args struct{ Status *string }) (int32, error) {
	status, err := parseStatusArg(args.Status)
	if err != nil {
		return 0, toGraphQL(ctx, err)
	}
	n, err := r.root.schools.MemberCount(ctx, r.s.ID, status)
	return int32(n), toGraphQL(ctx, err)
}

type roleResolver struct {
	root *Resolver
	role rbac.Role
}

func (r *roleResolver) ID() graphql.ID          { return graphql.ID(r.role.ID) }
func (r *roleResolver) Type() string            { return string(r.role.Type) }
func (r *roleResolver) Status() string          { return string(r.role.Status) }
func (r *roleResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.role.CreatedAt} }

func (r *roleResolver) User(ctx context.Context) (*userResolver, error) {
	u, err := r.root.relations.User(ctx, r.role.UserID)
	if err != nil {
		return nil, toGraphQL(ctx, err)
	}
	return &userResolver{root: r.root, u: u}, nil
}

func (r *roleResolver) School(ctx context.Context) (*schoolResolver, error) {
	if r.role.SchoolRole == nil {
		return nil, nil
	}
	s, err := optional(r.root.relations.School(ctx, r.role.SchoolRole.SchoolID))
	if err != nil || s == nil {
		return nil, toGraphQL(ctx, err)
	}
	return &schoolResolver{root: r.root, s: s}, nil
}

func (r *roleResolver) ChildUser(ctx context.Context) (*userResolver, error) {
	if r.role.ParentRole == nil {
		return nil, nil
	}
	u, err := optional(r.root.relations.User(ctx, r.role.ParentRole.ChildUserID))
	if err != nil || u == nil {
		return nil, toGraphQL(ctx, err)
	}
	return &userResolver{root: r.root, u: u}, nil
}

type imageResolver struct {
	img *assets.Image
}

func (r *imageResolver) ID() graphql.ID { return graphql.ID(r.img.ID) }
func (r *imageResolver) URL() string    { return r.img.URL }

type addressResolver struct {
	a *assets.Address
}

func (r *addressResolver) ID() graphql.ID  { return graphql.ID(r.a.ID) }
func (r *addressResolver) Street() string  { return r.a.Street }
func (r *addressResolver) City() string    { return r.a.City }
func (r *addressResolver) State() string   { return r.a.State }
func (r *addressResolver) Zip() string     { return r.a.Zip }
