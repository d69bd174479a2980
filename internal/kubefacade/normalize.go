package kubefacade

import (
	"time"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// Normalize converts a raw Kubernetes object (as returned by the
// dynamic client, already JSON-shaped) into a core.Record: extract
// identity and labels unconditionally, then branch on kind for the
// type-specific payload. Exported so internal/watcher can normalize
// both List items and Watch stream events through the same path.
func Normalize(kind core.Kind, obj map[string]any) *core.Record {
	u := unstructured.Unstructured{Object: obj}

	r := &core.Record{
		Identity: core.Identity{
			Kind:      kind,
			Namespace: u.GetNamespace(),
			Name:      u.GetName(),
		},
		Labels:          u.GetLabels(),
		ResourceVersion: u.GetResourceVersion(),
		UID:             string(u.GetUID()),
		CreationTime:    u.GetCreationTimestamp().Time,
	}

	switch kind {
	case core.KindNamespace:
		r.NamespaceDetail = normalizeNamespace(u)
	case core.KindDeployment, core.KindStatefulSet:
		r.Workload = normalizeWorkload(u)
	case core.KindPod:
		r.Pod = normalizePod(u)
	}

	return r
}

func normalizeNamespace(u unstructured.Unstructured) *core.NamespaceRecord {
	phase, _, _ := unstructured.NestedString(u.Object, "status", "phase")
	return &core.NamespaceRecord{Phase: core.NamespacePhase(phase)}
}

func normalizeWorkload(u unstructured.Unstructured) *core.WorkloadRecord {
	desired, hasDesired, _ := unstructured.NestedInt64(u.Object, "spec", "replicas")
	ready, _, _ := unstructured.NestedInt64(u.Object, "status", "readyReplicas")
	updated, _, _ := unstructured.NestedInt64(u.Object, "status", "updatedReplicas")

	var available int64
	if u.GetKind() == "StatefulSet" {
		// StatefulSet carries no availableReplicas field before 1.22;
		// treat ready as available uniformly for statefulsets.
		available = ready
	} else {
		available, _, _ = unstructured.NestedInt64(u.Object, "status", "availableReplicas")
	}

	counts := core.ReplicaCounts{
		Ready:     int32(ready),
		Available: int32(available),
		Updated:   int32(updated),
	}
	if hasDesired {
		d := int32(desired)
		counts.Desired = &d
	}

	wr := &core.WorkloadRecord{Replicas: counts}

	containers, _, _ := unstructured.NestedSlice(u.Object, "spec", "template", "spec", "containers")
	if len(containers) > 0 {
		if c, ok := containers[0].(map[string]any); ok {
			name, _, _ := unstructured.NestedString(c, "name")
			image, _, _ := unstructured.NestedString(c, "image")
			wr.MainContainer = core.ContainerImage{
				Name:     name,
				Image:    image,
				ImageTag: core.ImageTag(image),
			}
		}
	}

	wr.OwnerReferences = normalizeOwnerRefs(u)
	wr.Status = core.DeriveWorkloadStatus(counts)
	return wr
}

func normalizePod(u unstructured.Unstructured) *core.PodRecord {
	phase, _, _ := unstructured.NestedString(u.Object, "status", "phase")
	podIP, _, _ := unstructured.NestedString(u.Object, "status", "podIP")
	hostIP, _, _ := unstructured.NestedString(u.Object, "status", "hostIP")

	pr := &core.PodRecord{
		Phase:  phase,
		PodIP:  podIP,
		HostIP: hostIP,
	}

	if startedAt, _, _ := unstructured.NestedString(u.Object, "status", "startTime"); startedAt != "" {
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			pr.StartedAt = t
		}
	}

	if !u.GetDeletionTimestamp().IsZero() {
		pr.Phase = "Terminating"
	}

	containers, _, _ := unstructured.NestedSlice(u.Object, "spec", "containers")
	for _, c := range containers {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name, _, _ := unstructured.NestedString(cm, "name")
		image, _, _ := unstructured.NestedString(cm, "image")
		pr.Containers = append(pr.Containers, core.ContainerImage{
			Name:     name,
			Image:    image,
			ImageTag: core.ImageTag(image),
		})
	}

	pr.OwnerReferences = normalizeOwnerRefs(u)
	pr.Status = core.DerivePodStatus(pr.Phase)
	return pr
}

func normalizeOwnerRefs(u unstructured.Unstructured) []core.OwnerReference {
	refs, _, _ := unstructured.NestedSlice(u.Object, "metadata", "ownerReferences")
	out := make([]core.OwnerReference, 0, len(refs))
	for _, r := range refs {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		name, _, _ := unstructured.NestedString(rm, "name")
		kind, _, _ := unstructured.NestedString(rm, "kind")
		uid, _, _ := unstructured.NestedString(rm, "uid")
		out = append(out, core.OwnerReference{Name: name, Kind: kind, UID: uid})
	}
	return out
}

// normalizePodMetrics converts a metrics.k8s.io PodMetrics object into
// core.PodMetrics, summing per-container CPU (nanocores) and memory
// (bytes) quantities.
func normalizePodMetrics(obj map[string]any) core.PodMetrics {
	var pm core.PodMetrics

	containers, _, _ := unstructured.NestedSlice(obj, "containers")
	for _, c := range containers {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		name, _, _ := unstructured.NestedString(cm, "name")
		cpu, _, _ := unstructured.NestedString(cm, "usage", "cpu")
		mem, _, _ := unstructured.NestedString(cm, "usage", "memory")

		cpuMillis := parseCPUMillis(cpu)
		memBytes := parseMemoryBytes(mem)

		pm.Containers = append(pm.Containers, core.ContainerMetrics{
			Name:        name,
			CPUMillis:   cpuMillis,
			MemoryBytes: memBytes,
		})
		pm.CPUMillis += cpuMillis
		pm.MemoryBytes += memBytes
	}

	return pm
}

func parseCPUMillis(s string) int64 {
	if s == "" {
		return 0
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0
	}
	return q.MilliValue()
}

func parseMemoryBytes(s string) int64 {
	if s == "" {
		return 0
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0
	}
	return q.Value()
}
