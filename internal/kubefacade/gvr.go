package kubefacade

import (
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// gvrs maps each watched Kind to its GroupVersionResource. This
// gateway watches a fixed, design-time set of four kinds (see the ADR
// in core/watcher.go), so the mapping is a plain table rather than a
// discovery-driven lookup.
var gvrs = map[core.Kind]schema.GroupVersionResource{
	core.KindNamespace:   {Group: "", Version: "v1", Resource: "namespaces"},
	core.KindDeployment:  {Group: "apps", Version: "v1", Resource: "deployments"},
	core.KindStatefulSet: {Group: "apps", Version: "v1", Resource: "statefulsets"},
	core.KindPod:         {Group: "", Version: "v1", Resource: "pods"},
}

// podMetricsGVR is the metrics.k8s.io resource backing ReadPodMetrics.
// It is fetched through the same dynamic client as every other kind
// rather than a dedicated metrics clientset, since this gateway's only
// use of it is a single-object on-demand read.
var podMetricsGVR = schema.GroupVersionResource{
	Group:    "metrics.k8s.io",
	Version:  "v1beta1",
	Resource: "pods",
}

func gvrFor(kind core.Kind) (schema.GroupVersionResource, bool) {
	gvr, ok := gvrs[kind]
	return gvr, ok
}
