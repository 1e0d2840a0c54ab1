package ar

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/query"
	"github.com/rhosocial/activerecord-go/relation"
)

// relationDef is one registered association on an owning type: its kind,
// the rel:"name"-tagged field it populates, the related Go type (needed
// to recurse into a dotted path's next segment), and a builder for the
// relation.Descriptor package relation actually resolves against.
type relationDef struct {
	kind       relation.Kind
	fieldIndex []int
	targetType reflect.Type
	build      func() relation.Descriptor
}

func kindName(k relation.Kind) string {
	switch k {
	case relation.BelongsTo:
		return "BelongsTo"
	case relation.HasOne:
		return "HasOne"
	default:
		return "HasMany"
	}
}

func registerRelation[Owner any](name string, kind relation.Kind, fieldIndex []int, targetType reflect.Type, build func() relation.Descriptor) {
	c := configFor[Owner]()
	if c.relations == nil {
		c.relations = map[string]relationDef{}
	}
	c.relations[name] = relationDef{kind: kind, fieldIndex: fieldIndex, targetType: targetType, build: build}
}

// BelongsTo declares that Owner holds foreignKeyColumn referencing
// Target's primary key. Owner's field tagged `rel:"name"` must be *Target.
func BelongsTo[Owner, Target any](name, foreignKeyColumn string) {
	ownerMeta := metaFor[Owner]()
	fkField, ok := ownerMeta.ColumnField(foreignKeyColumn)
	if !ok {
		panic(fmt.Sprintf("ar: BelongsTo(%q): %T has no db column %q", name, *new(Owner), foreignKeyColumn))
	}
	fieldIndex := ownerMeta.relFieldIndex(name)
	if fieldIndex == nil {
		panic(fmt.Sprintf("ar: BelongsTo(%q): %T has no field tagged rel:%q", name, *new(Owner), name))
	}
	registerRelation[Owner](name, relation.BelongsTo, fieldIndex, reflect.TypeOf(*new(Target)), func() relation.Descriptor {
		pkCol := metaFor[Target]().PKColumn()
		return relation.Descriptor{
			Name:       name,
			Kind:       relation.BelongsTo,
			OwnerKey:   func(owner any) any { return fieldValue(owner, fkField) },
			RelatedKey: func(related any) any { return pkValueOf[Target](related) },
			Load:       func(ctx context.Context, keys []any) ([]any, error) { return loadIn[Target](ctx, pkCol, keys) },
			Assign:     func(owner any, related []any) { assignSingle(owner, fieldIndex, related) },
		}
	})
}

// HasOne declares that Target holds foreignKeyColumn referencing Owner's
// primary key, with at most one matching Target per Owner. Owner's field
// tagged `rel:"name"` must be *Target.
func HasOne[Owner, Target any](name, foreignKeyColumn string) {
	hasRelation[Owner, Target](name, foreignKeyColumn, relation.HasOne)
}

// HasMany declares that Target holds foreignKeyColumn referencing
// Owner's primary key, with any number of matching Targets per Owner.
// Owner's field tagged `rel:"name"` must be []*Target.
func HasMany[Owner, Target any](name, foreignKeyColumn string) {
	hasRelation[Owner, Target](name, foreignKeyColumn, relation.HasMany)
}

func hasRelation[Owner, Target any](name, foreignKeyColumn string, kind relation.Kind) {
	ownerMeta := metaFor[Owner]()
	pkCol := ownerMeta.PKColumn()
	fieldIndex := ownerMeta.relFieldIndex(name)
	if fieldIndex == nil {
		panic(fmt.Sprintf("ar: %s(%q): %T has no field tagged rel:%q", kindName(kind), name, *new(Owner), name))
	}
	registerRelation[Owner](name, kind, fieldIndex, reflect.TypeOf(*new(Target)), func() relation.Descriptor {
		fkField, ok := metaFor[Target]().ColumnField(foreignKeyColumn)
		if !ok {
			panic(fmt.Sprintf("ar: %s(%q): %T has no db column %q", kindName(kind), name, *new(Target), foreignKeyColumn))
		}
		return relation.Descriptor{
			Name:       name,
			Kind:       kind,
			OwnerKey:   func(owner any) any { return pkValueOf[Owner](owner) },
			RelatedKey: func(related any) any { return fieldValue(related, fkField) },
			Load:       func(ctx context.Context, keys []any) ([]any, error) { return loadIn[Target](ctx, foreignKeyColumn, keys) },
			Assign: func(owner any, related []any) {
				if kind == relation.HasMany {
					assignSlice(owner, fieldIndex, related)
				} else {
					assignSingle(owner, fieldIndex, related)
				}
			},
		}
	})
}

func loadIn[Target any](ctx context.Context, column string, keys []any) ([]any, error) {
	rows, err := Query[Target](ctx).Where(sql.In(sql.C(column), keys...)).All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func fieldValue(v any, fm fieldMeta) any {
	return reflect.ValueOf(v).Elem().FieldByIndex(fm.index).Interface()
}

func pkValueOf[T any](v any) any {
	m := metaFor[T]()
	pk, err := m.PKField()
	if err != nil {
		return nil
	}
	return reflect.ValueOf(v).Elem().FieldByIndex(pk.index).Interface()
}

func assignSingle(owner any, fieldIndex []int, related []any) {
	rv := reflect.ValueOf(owner).Elem().FieldByIndex(fieldIndex)
	if len(related) == 0 {
		rv.Set(reflect.Zero(rv.Type()))
		return
	}
	rv.Set(reflect.ValueOf(related[0]))
}

func assignSlice(owner any, fieldIndex []int, related []any) {
	rv := reflect.ValueOf(owner).Elem().FieldByIndex(fieldIndex)
	slice := reflect.MakeSlice(rv.Type(), len(related), len(related))
	for i, r := range related {
		slice.Index(i).Set(reflect.ValueOf(r))
	}
	rv.Set(slice)
}

// Preload batch-loads each named relation path for owners and attaches
// the result into the matching rel-tagged field. A dotted path
// ("posts.comments") recurses: "posts" resolves first against owners,
// then "comments" resolves against the just-loaded posts, so the whole
// chain costs one query per path segment regardless of len(owners).
func Preload[Owner any](ctx context.Context, owners []*Owner, paths ...string) error {
	if len(owners) == 0 {
		return nil
	}
	anyOwners := make([]any, len(owners))
	for i, o := range owners {
		anyOwners[i] = o
	}
	t := reflect.TypeOf(*new(Owner))
	for _, p := range paths {
		if err := preloadPath(ctx, t, anyOwners, p); err != nil {
			return err
		}
	}
	return nil
}

func preloadPath(ctx context.Context, ownerType reflect.Type, owners []any, path string) error {
	if len(owners) == 0 {
		return nil
	}
	head, rest, hasMore := cutPath(path)
	cfgAny, ok := configs.Load(ownerType)
	if !ok {
		return fmt.Errorf("ar: %s is not configured", ownerType)
	}
	cfg := cfgAny.(*typeConfig)
	def, ok := cfg.relations[head]
	if !ok {
		return fmt.Errorf("ar: %s has no relation %q", ownerType, head)
	}

	if err := relation.Preload(ctx, owners, def.build()); err != nil {
		return err
	}
	if !hasMore {
		return nil
	}
	return preloadPath(ctx, def.targetType, collectRelated(owners, def.fieldIndex, def.kind), rest)
}

func cutPath(path string) (head, rest string, hasMore bool) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:], true
	}
	return path, "", false
}

func collectRelated(owners []any, fieldIndex []int, kind relation.Kind) []any {
	var out []any
	for _, o := range owners {
		rv := reflect.ValueOf(o).Elem().FieldByIndex(fieldIndex)
		if kind == relation.HasMany {
			for i := 0; i < rv.Len(); i++ {
				out = append(out, rv.Index(i).Interface())
			}
			continue
		}
		if !rv.IsNil() {
			out = append(out, rv.Interface())
		}
	}
	return out
}

// AllPreloaded runs q and resolves every relation path registered on it
// via Query[T](ctx).Preload(...), in one call.
func AllPreloaded[T any](ctx context.Context, q *query.Query[*T]) ([]*T, error) {
	rows, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := Preload[T](ctx, rows, q.PreloadPaths()...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Related lazily resolves owner's single named relation, the one-owner
// case of the same batched Descriptor machinery Preload uses. The first
// call issues one query (an IN-list of a single key) and caches the
// result on owner's Base; later calls for the same name return the
// cached value without touching the database, until ClearRelationCache
// invalidates it. Target must match the relation's registered type and
// shape: a single *Target for BelongsTo/HasOne, a []*Target for HasMany.
func Related[Owner, Target any](ctx context.Context, owner *Owner, name string) (Target, error) {
	var zero Target
	b := base(owner)
	if v, ok := b.relationCached(name); ok {
		return v.(Target), nil
	}

	t := reflect.TypeOf(*new(Owner))
	cfgAny, ok := configs.Load(t)
	if !ok {
		return zero, fmt.Errorf("ar: %s is not configured", t)
	}
	cfg := cfgAny.(*typeConfig)
	def, ok := cfg.relations[name]
	if !ok {
		return zero, fmt.Errorf("ar: %s has no relation %q", t, name)
	}

	if err := relation.Preload(ctx, []any{owner}, def.build()); err != nil {
		return zero, err
	}

	rv := reflect.ValueOf(owner).Elem().FieldByIndex(def.fieldIndex)
	result, ok := rv.Interface().(Target)
	if !ok {
		return zero, fmt.Errorf("ar: relation %q field type %s does not match requested %T", name, rv.Type(), zero)
	}
	b.cacheRelation(name, result)
	return result, nil
}
