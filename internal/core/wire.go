package core

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the domain layer.
var ProviderSet = wire.NewSet(
	NewStore,
)
