// Package relation implements batched eager loading for BelongsTo/HasOne/
// HasMany associations: one query per relation level, keyed by parent
// keys, never a join — so preloading never multiplies parent rows.
package relation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Kind names an association shape.
type Kind int

const (
	BelongsTo Kind = iota
	HasOne
	HasMany
)

// Descriptor binds one named association on an owning model type to the
// functions needed to batch-load and attach it. Package ar constructs
// Descriptors via reflection over a model's relation struct tags; package
// relation never inspects a model's shape itself.
type Descriptor struct {
	// Name is the relation's path segment (e.g. "posts" in "posts.comments").
	Name string
	Kind Kind

	// OwnerKey extracts the join-key value from one owner record.
	OwnerKey func(owner any) any

	// RelatedKey extracts the join-key value from one related record, the
	// value OwnerKey values are matched against.
	RelatedKey func(related any) any

	// Load fetches every related record whose join key is in keys, in a
	// single query. keys is already deduplicated.
	Load func(ctx context.Context, keys []any) ([]any, error)

	// Assign attaches the related records matching owner's join key onto
	// owner. For BelongsTo/HasOne, related has at most one element; for
	// HasMany it may have any number. Assign receives related == nil when
	// no rows matched, and must still clear/initialize the owner's field
	// in that case (an empty slice for HasMany, nil for BelongsTo/HasOne).
	Assign func(owner any, related []any)
}

// Preload batch-loads one Descriptor's association for every owner and
// assigns it. It issues exactly one query regardless of len(owners).
func Preload(ctx context.Context, owners []any, d Descriptor) error {
	if len(owners) == 0 {
		return nil
	}
	seen := make(map[any]struct{}, len(owners))
	var keys []any
	for _, o := range owners {
		k := d.OwnerKey(o)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	related, err := d.Load(ctx, keys)
	if err != nil {
		return err
	}

	grouped := make(map[any][]any, len(keys))
	for _, r := range related {
		k := d.RelatedKey(r)
		grouped[k] = append(grouped[k], r)
	}

	for _, o := range owners {
		d.Assign(o, grouped[d.OwnerKey(o)])
	}
	return nil
}

// PreloadAll resolves every Descriptor in descs concurrently against the
// same owner set, using golang.org/x/sync/errgroup so sibling relation
// paths at one preload level (e.g. Preload("posts", "profile")) run as
// parallel queries rather than sequentially. The first descriptor to
// fail cancels the group's context, which sibling Load calls receive; a
// sibling whose Load still succeeds assigns its results to the owners,
// and PreloadAll returns the first error.
func PreloadAll(ctx context.Context, owners []any, descs []Descriptor) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range descs {
		d := d
		g.Go(func() error { return Preload(gctx, owners, d) })
	}
	return g.Wait()
}
