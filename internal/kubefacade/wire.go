package kubefacade

import (
	"github.com/google/wire"
)

// ProviderSet is the Wire provider set for the Kubernetes facade
// layer. buildFacade (in internal/cmd/gateway) chooses between
// RealFacade and MockFacade based on configuration, so only the
// constructors themselves are exposed here.
var ProviderSet = wire.NewSet(
	ProvideRestConfig,
	NewRealFacade,
)
