package loader

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/platinummonkey/huddle/pkg/apperrors"
)

// NotFoundError is delivered to the requester whose key had no row. Other
// keys of the same batch are unaffected.
type NotFoundError struct {
	Loader string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found", e.Loader, e.Key)
}

// Unwrap makes errors.Is(err, apperrors.ErrNotFound) hold
func (e *NotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

// RelationKey identifies a relation fetch: the owning entity and the
// canonical JSON of its arguments
type RelationKey struct {
	OwnerID string
	Args    string
}

// NewRelationKey serializes args with encoding/json, which writes struct
// fields in declaration order and map keys sorted, so equal arguments
// always produce equal keys
func NewRelationKey(ownerID string, args interface{}) (RelationKey, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return RelationKey{}, fmt.Errorf("failed to encode relation args: %w", err)
	}
	return RelationKey{OwnerID: ownerID, Args: string(b)}, nil
}

// DecodeArgs parses the arguments of a relation key
func DecodeArgs[A any](key RelationKey) (A, error) {
	var args A
	if err := json.Unmarshal([]byte(key.Args), &args); err != nil {
		return args, fmt.Errorf("failed to decode relation args %q: %w", key.Args, err)
	}
	return args, nil
}

func (k RelationKey) String() string {
	return k.OwnerID + ";" + k.Args
}

// FetchFunc fetches a batch of keys. Keys absent from the result map are
// reported per key; an error fails every key of the batch.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Definition describes a named loader. Loads go through the Scope in the
// context so each operation gets its own batching and cache.
type Definition[K comparable, V any] struct {
	name      string
	fetch     FetchFunc[K, V]
	onMissing func(name string, key K) (V, error)
}

// NewEntityLoader defines a loader keyed by entity id. A missing id
// resolves to *NotFoundError for that requester only.
func NewEntityLoader[K comparable, V any](name string, fetch FetchFunc[K, V]) Definition[K, V] {
	return Definition[K, V]{
		name:  name,
		fetch: fetch,
		onMissing: func(name string, key K) (V, error) {
			var zero V
			return zero, &NotFoundError{Loader: name, Key: fmt.Sprint(key)}
		},
	}
}

// NewRelationLoader defines a loader keyed by RelationKey. An owner with no
// related rows resolves to the zero value of V (an empty list, a zero count).
func NewRelationLoader[V any](name string, fetch FetchFunc[RelationKey, V]) Definition[RelationKey, V] {
	return Definition[RelationKey, V]{
		name:  name,
		fetch: fetch,
		onMissing: func(string, RelationKey) (V, error) {
			var zero V
			return zero, nil
		},
	}
}

// Name returns the loader name
func (d Definition[K, V]) Name() string {
	return d.name
}

// Load returns the value for key. Concurrent loads of the same key within
// one scope share a single fetch. Without a scope in ctx the key is fetched
// directly, uncached.
func (d Definition[K, V]) Load(ctx context.Context, key K) (V, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return d.loadDirect(ctx, key)
	}

	l, err := d.loader(scope)
	if err != nil {
		var zero V
		return zero, err
	}
	return l.Load(ctx, key)()
}

// LoadMany loads keys in one batch and returns values and errors by
// position. Both slices always have len(keys) entries.
func (d Definition[K, V]) LoadMany(ctx context.Context, keys []K) ([]V, []error) {
	scope, ok := FromContext(ctx)
	if !ok {
		values := make([]V, len(keys))
		errs := make([]error, len(keys))
		for i, r := range d.batch(nil)(ctx, keys) {
			values[i], errs[i] = r.Data, r.Error
		}
		return values, errs
	}

	l, err := d.loader(scope)
	if err != nil {
		errs := make([]error, len(keys))
		for i := range errs {
			errs[i] = err
		}
		return make([]V, len(keys)), errs
	}
	values, errs := l.LoadMany(ctx, keys)()
	if errs == nil {
		// dataloader returns nil errors when every key succeeded
		errs = make([]error, len(keys))
	}
	return values, errs
}

// Prime seeds the scope cache, typically with rows a list query already
// returned
func (d Definition[K, V]) Prime(ctx context.Context, key K, value V) {
	scope, ok := FromContext(ctx)
	if !ok {
		return
	}
	if l, err := d.loader(scope); err == nil {
		l.Prime(ctx, key, value)
	}
}

func (d Definition[K, V]) loadDirect(ctx context.Context, key K) (V, error) {
	r := d.batch(nil)(ctx, []K{key})[0]
	return r.Data, r.Error
}

func (d Definition[K, V]) loader(scope *Scope) (*dataloader.Loader[K, V], error) {
	value, err := scope.getOrCreate(d.name, func(opts Options) (interface{}, func()) {
		var loaderOpts []dataloader.Option[K, V]
		if opts.Wait > 0 {
			loaderOpts = append(loaderOpts, dataloader.WithWait[K, V](opts.Wait))
		}
		if opts.MaxBatch > 0 {
			loaderOpts = append(loaderOpts, dataloader.WithBatchCapacity[K, V](opts.MaxBatch))
		}
		l := dataloader.NewBatchedLoader(d.batch(&opts), loaderOpts...)
		return l, func() { l.ClearAll() }
	})
	if err != nil {
		return nil, err
	}
	return value.(*dataloader.Loader[K, V]), nil
}

// batch adapts the FetchFunc to dataloader's positional result contract
func (d Definition[K, V]) batch(opts *Options) dataloader.BatchFunc[K, V] {
	return func(ctx context.Context, keys []K) []*dataloader.Result[V] {
		if opts != nil && opts.BatchSizes != nil {
			opts.BatchSizes.WithLabelValues(d.name).Observe(float64(len(keys)))
		}

		results := make([]*dataloader.Result[V], len(keys))
		found, err := d.fetch(ctx, keys)
		if err != nil {
			err = fmt.Errorf("failed to load %s: %w", d.name, err)
			for i := range results {
				results[i] = &dataloader.Result[V]{Error: err}
			}
			return results
		}

		for i, key := range keys {
			if v, ok := found[key]; ok {
				results[i] = &dataloader.Result[V]{Data: v}
				continue
			}
			v, err := d.onMissing(d.name, key)
			results[i] = &dataloader.Result[V]{Data: v, Error: err}
		}
		return results
	}
}
