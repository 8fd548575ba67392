package domain

import (
	"context"
)

// ProductSource is one stage of the resolution chain.
// Lookup returns ErrProductNotFound when the source has no record for the barcode.
type ProductSource interface {
	Name() Source
	Lookup(ctx context.Context, barcode string) (*ProductRecord, error)
}

// ProductStore is the writable internal product store
type ProductStore interface {
	Get(ctx context.Context, barcode string) (*ProductRecord, error)
	Upsert(ctx context.Context, record *ProductRecord) error
}
