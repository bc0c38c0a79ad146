package assets

import (
	"github.com/platinummonkey/huddle/pkg/loader"
)

// Loaders are the batched lookups of this package
type Loaders struct {
	Images    loader.Definition[string, *Image]
	Addresses loader.Definition[string, *Address]
}

// NewLoaders defines the loaders backed by store
func NewLoaders(store *Store) *Loaders {
	return &Loaders{
		Images:    loader.NewEntityLoader("images.byID", store.ImagesByIDs),
		Addresses: loader.NewEntityLoader("addresses.byID", store.AddressesByIDs),
	}
}
