// Package store provides the metadata record store backing appointments and
// user profiles. It is strictly typed key/value storage: records are
// addressed by namespace and key, and "search" is exact-match filtering on
// record fields. No similarity or range semantics exist here.
package store

import (
	"context"
	"errors"
)

// Namespaces used by the booking workflow.
const (
	NamespaceAppointments = "appointments"
	NamespaceUsers        = "users"
)

// ErrNotFound indicates no record matched a Get.
var ErrNotFound = errors.New("store: record not found")

// Record is a stored metadata record.
type Record struct {
	Namespace string            `dynamodbav:"ns"`
	Key       string            `dynamodbav:"sk"`
	Fields    map[string]string `dynamodbav:"fields"`
}

// Filter is an exact-match predicate over record fields. A record matches
// when every filter entry equals the corresponding field value.
type Filter map[string]string

// Matches reports whether the record's fields satisfy the filter.
func (f Filter) Matches(fields map[string]string) bool {
	for k, want := range f {
		if fields[k] != want {
			return false
		}
	}
	return true
}

// MetadataStore is the persistence collaborator consumed by the booking
// workflow.
type MetadataStore interface {
	// Upsert writes the record, replacing any existing record with the
	// same namespace and key.
	Upsert(ctx context.Context, rec Record) error

	// Query returns all records in the namespace whose fields match the
	// filter. Order is unspecified; callers sort as needed.
	Query(ctx context.Context, namespace string, filter Filter) ([]Record, error)

	// Get returns the single record with the given key, or ErrNotFound.
	Get(ctx context.Context, namespace, key string) (Record, error)
}
