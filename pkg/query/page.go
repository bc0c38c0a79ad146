package query

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/database"
	"github.com/platinummonkey/huddle/pkg/observability"
)

// Page size limits
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PageRequest selects a window of a listing
type PageRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize applies the default limit, caps it at MaxLimit and rejects
// negative values
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Offset < 0 {
		return p, apperrors.Validation("offset must not be negative")
	}
	if p.Limit < 0 {
		return p, apperrors.Validation("limit must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p, nil
}

// Page is the envelope returned by list operations. TotalCount counts every
// row matching the filter, independent of the window.
type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalCount  int  `json:"totalCount"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
}

// Listing describes a list query: which rows (Where), which columns, and
// in which order
type Listing struct {
	Table   string
	Columns []string
	Where   sq.Sqlizer
	OrderBy []string
}

func (l Listing) where() sq.Sqlizer {
	if l.Where == nil {
		return All()
	}
	return l.Where
}

// SelectSQL renders the page query
func (l Listing) SelectSQL(page PageRequest) (string, []interface{}, error) {
	return Builder.Select(l.Columns...).
		From(l.Table).
		Where(l.where()).
		OrderBy(l.OrderBy...).
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
}

// CountSQL renders the count query with the same predicate
func (l Listing) CountSQL() (string, []interface{}, error) {
	return Builder.Select("COUNT(*)").From(l.Table).Where(l.where()).ToSql()
}

// Assembler executes listings against the database
type Assembler struct {
	db       database.TxBeginner
	duration *prometheus.HistogramVec
	tracer   trace.Tracer
}

// NewAssembler creates an Assembler. duration may be nil.
func NewAssembler(db database.TxBeginner, duration *prometheus.HistogramVec) *Assembler {
	return &Assembler{
		db:       db,
		duration: duration,
		tracer:   observability.Tracer("query"),
	}
}

// Assemble runs the page and count queries of listing in one consistent
// read and returns the page envelope. An offset past the end yields no
// items and the correct TotalCount.
func Assemble[T any](ctx context.Context, a *Assembler, listing Listing, page PageRequest) (*Page[T], error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	selectSQL, selectArgs, err := listing.SelectSQL(page)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", listing.Table, err)
	}
	countSQL, countArgs, err := listing.CountSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s count query: %w", listing.Table, err)
	}

	ctx, span := a.tracer.Start(ctx, "query.Assemble",
		trace.WithAttributes(
			attribute.String("db.table", listing.Table),
			attribute.Int("page.offset", page.Offset),
			attribute.Int("page.limit", page.Limit),
		),
	)
	defer span.End()

	start := time.Now()
	result := &Page[T]{Items: []T{}, Offset: page.Offset, Limit: page.Limit}

	err = database.WithTxOptions(ctx, a.db, database.ReadSnapshot, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &result.Items, selectSQL, selectArgs...); err != nil {
			return fmt.Errorf("failed to list %s: %w", listing.Table, err)
		}
		if err := tx.GetContext(ctx, &result.TotalCount, countSQL, countArgs...); err != nil {
			return fmt.Errorf("failed to count %s: %w", listing.Table, err)
		}
		return nil
	})

	if a.duration != nil {
		a.duration.WithLabelValues(listing.Table).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assemble failed")
		return nil, err
	}

	result.HasNextPage = page.Offset+len(result.Items) < result.TotalCount
	span.SetAttributes(attribute.Int("page.total", result.TotalCount))
	return result, nil
}
