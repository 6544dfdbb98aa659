// Package storage defines the object-store port and its local adapter.
package storage

import (
	"context"
	"time"
)

// ObjectStore is the blob capability consumed by the pipeline. Locations
// are forward-slash keys like "uploads/{ackId}/{file}".
type ObjectStore interface {
	Put(ctx context.Context, location string, data []byte, contentType string) error
	Get(ctx context.Context, location string) ([]byte, error)
	Exists(ctx context.Context, location string) (bool, error)
	Delete(ctx context.Context, location string) error
	// Presign returns a time-limited download URL for the location.
	Presign(location string, ttl time.Duration) (string, error)
}
