package kubefacade

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// RealFacade implements core.KubeFacade against a live cluster through
// a single shared dynamic client. There is no per-user impersonation or
// per-cluster transport cache: this gateway speaks to exactly one
// cluster, as the one identity the process itself runs as — a
// read-only, single-tenant gateway has no per-request auth to forward.
type RealFacade struct {
	client dynamic.Interface
}

// NewRealFacade builds a RealFacade from a resolved *rest.Config.
func NewRealFacade(cfg *rest.Config) (*RealFacade, error) {
	client, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build dynamic client: %w", err)
	}
	return &RealFacade{client: client}, nil
}

var _ core.KubeFacade = (*RealFacade)(nil)

// List returns every object of kind across all namespaces, plus the
// resource version the caller should resume watching from.
func (f *RealFacade) List(ctx context.Context, kind core.Kind) (core.ListResult, error) {
	gvr, ok := gvrFor(kind)
	if !ok {
		return core.ListResult{}, &core.DomainError{Code: core.ErrorCodeInvalidArgument, Message: fmt.Sprintf("unknown kind %q", kind)}
	}

	list, err := f.client.Resource(gvr).Namespace("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return core.ListResult{}, wrapK8sError(err)
	}

	items := make([]map[string]any, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, list.Items[i].Object)
	}

	return core.ListResult{
		Items:           items,
		ResourceVersion: list.GetResourceVersion(),
	}, nil
}

// Watch opens a watch stream for kind, resuming from resourceVersion.
// sendInitialEvents requests the server-side streaming list feature
// (Kubernetes >= 1.27, GA 1.32); the Watcher FSM falls back to a plain
// List+Watch sequence itself when this is false, so the facade simply
// forwards the flag.
func (f *RealFacade) Watch(ctx context.Context, kind core.Kind, resourceVersion string, sendInitialEvents bool, listTimeout time.Duration) (core.RawWatch, error) {
	gvr, ok := gvrFor(kind)
	if !ok {
		return nil, &core.DomainError{Code: core.ErrorCodeInvalidArgument, Message: fmt.Sprintf("unknown kind %q", kind)}
	}

	opts := metav1.ListOptions{
		Watch:               true,
		AllowWatchBookmarks: true,
		ResourceVersion:     resourceVersion,
	}
	if listTimeout > 0 {
		seconds := int64(listTimeout.Seconds())
		opts.TimeoutSeconds = &seconds
	}
	if sendInitialEvents {
		opts.ResourceVersionMatch = metav1.ResourceVersionMatchNotOlderThan
		opts.SendInitialEvents = &sendInitialEvents
	}

	w, err := f.client.Resource(gvr).Namespace("").Watch(ctx, opts)
	if err != nil {
		return nil, wrapK8sError(err)
	}

	return newWatchAdapter(w), nil
}

// ReadPodMetrics performs a single on-demand metrics.k8s.io read for
// one pod. This is the sole live API call outside the watch pipeline
// (spec §4.1 Supplement). A miss (metrics-server not installed, or
// the pod has not reported yet) surfaces as a NotFound DomainError the
// httpapi layer turns into a 404, not an empty zero-value reading.
func (f *RealFacade) ReadPodMetrics(ctx context.Context, namespace, name string) (core.PodMetrics, error) {
	obj, err := f.client.Resource(podMetricsGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return core.PodMetrics{}, wrapK8sError(err)
	}
	return normalizePodMetrics(obj.Object), nil
}
