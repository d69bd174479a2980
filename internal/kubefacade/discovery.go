package kubefacade

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// VerifyGVRs confirms the cluster actually serves the GroupVersionResource
// backing every core.Kind this gateway watches, failing fast at startup
// rather than surfacing a confusing empty snapshot from a Watcher whose
// very first List call 404s. This is the one discovery-client use in
// the whole facade — everything else talks to the fixed GVR table in
// gvr.go directly.
func VerifyGVRs(cfg *rest.Config) error {
	client, err := discovery.NewDiscoveryClientForConfig(cfg)
	if err != nil {
		return fmt.Errorf("build discovery client: %w", err)
	}

	for _, kind := range core.Kinds {
		gvr, ok := gvrFor(kind)
		if !ok {
			return fmt.Errorf("no GVR mapping for kind %q", kind)
		}

		resources, err := client.ServerResourcesForGroupVersion(gvr.GroupVersion().String())
		if err != nil {
			return fmt.Errorf("discover resources for %s: %w", gvr.GroupVersion(), err)
		}

		if !hasResource(resources.APIResources, gvr.Resource) {
			return fmt.Errorf("cluster does not serve %s/%s, required for kind %q", gvr.GroupVersion(), gvr.Resource, kind)
		}
	}

	return nil
}

func hasResource(resources []metav1.APIResource, name string) bool {
	for _, r := range resources {
		if r.Name == name {
			return true
		}
	}
	return false
}
