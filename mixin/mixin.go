// Package mixin provides common embeddable field bundles for ar.Base
// models: timestamps, soft deletion, optimistic locking, UUID primary
// keys, and tenant scoping. These are OPTIONAL starting points — embed
// the ones a model needs, or write a project-specific bundle following
// the same shape (db/ar struct tags plus an optional touch-hook method
// ar.Base's save/delete algorithm type-asserts against).
//
// Usage:
//
//	type Post struct {
//		ar.Base[Post]
//		ID int64 `db:"id" ar:"pk"`
//		mixin.Time
//		mixin.SoftDelete
//	}
package mixin

import (
	"time"

	"github.com/google/uuid"
)

// CreateTime adds a created_at column, stamped once on insert via
// TouchCreated.
type CreateTime struct {
	CreatedAt time.Time `db:"created_at"`
}

// TouchCreated sets CreatedAt to the current time. ar.Base's insert path
// calls this automatically when the embedding model implements it.
func (m *CreateTime) TouchCreated() { m.CreatedAt = time.Now() }

// UpdateTime adds an updated_at column, restamped on every insert and
// update via TouchUpdated.
type UpdateTime struct {
	UpdatedAt time.Time `db:"updated_at"`
}

// TouchUpdated sets UpdatedAt to the current time. ar.Base's insert and
// update paths call this automatically when the embedding model
// implements it.
func (m *UpdateTime) TouchUpdated() { m.UpdatedAt = time.Now() }

// Time composes CreateTime and UpdateTime, the common case of wanting
// both audit columns.
type Time struct {
	CreateTime
	UpdateTime
}

// UUID gives a model a client-generated UUID primary key instead of a
// database auto-increment/sequence: EnsureID populates it before the
// first insert if it is still the zero UUID, so RETURNING/last-insert-id
// is never needed to learn the generated key.
type UUID struct {
	ID uuid.UUID `db:"id" ar:"pk"`
}

// EnsureID generates a UUID if one hasn't been assigned yet. ar.Base's
// insert path calls this automatically when the embedding model
// implements it.
func (m *UUID) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

// SoftDelete adds a nullable deleted_at tombstone column. A model
// embedding SoftDelete has its Delete() routed through an UPDATE setting
// deleted_at instead of a physical DELETE, per the soft-delete mixin
// contract (ar.Meta detects the ar:"soft_delete" tag).
type SoftDelete struct {
	DeletedAt *time.Time `db:"deleted_at" ar:"soft_delete"`
}

// IsDeleted reports whether the tombstone has been set.
func (m *SoftDelete) IsDeleted() bool { return m.DeletedAt != nil }

// OptimisticLock adds an integer version column. ar.Base's update path
// includes version = current in the UPDATE's WHERE clause and
// version = current + 1 in its SET clause, raising StaleObjectError on a
// zero-row result (ar.Meta detects the ar:"version" tag).
type OptimisticLock struct {
	Version int64 `db:"version" ar:"version"`
}

// TenantID adds a tenant_id column for row-level multi-tenant scoping.
// Unlike the other mixins, ar.Base does not interpret this field itself;
// callers filter by it explicitly in their finders/queries (e.g. via
// ar.FindAll's conditions map), the same way the teacher's privacy-policy
// mixin leaves tenant filtering to an explicit policy rather than an
// implicit global filter.
type TenantID struct {
	TenantID string `db:"tenant_id"`
}

// TimeSoftDelete composes Time and SoftDelete, the common audit-trail-
// with-soft-deletion bundle.
type TimeSoftDelete struct {
	Time
	SoftDelete
}
