package core

import "time"

// Kind is one of the fixed, closed set of resource kinds this gateway
// mirrors. Kind is not discovered at runtime — the set is closed by
// design (see ADR in watcher.go) so every kind gets a typed payload
// rather than an unstructured map.
type Kind string

const (
	KindNamespace   Kind = "namespace"
	KindDeployment  Kind = "deployment"
	KindStatefulSet Kind = "stateful_set"
	KindPod         Kind = "pod"
)

// Kinds lists every kind the gateway watches, in a stable order used
// for startup sequencing and diagnostics.
var Kinds = []Kind{KindNamespace, KindDeployment, KindStatefulSet, KindPod}

// Identity is the store key: (kind, namespace, name). Namespace is
// empty for cluster-scoped kinds (namespace itself). Identity is
// stable across an object's lifetime; the server-assigned UID is
// carried on the Record for reference but never used for keying, so
// a delete-then-recreate under the same name collapses onto one key.
type Identity struct {
	Kind      Kind
	Namespace string
	Name      string
}

// Key returns the Store's map key for this identity: "namespace/name",
// or just "name" for cluster-scoped kinds (namespace itself).
func (i Identity) Key() string {
	if i.Namespace == "" {
		return i.Name
	}
	return i.Namespace + "/" + i.Name
}

// OwnerReference is the normalized shape of a Kubernetes owner
// reference: enough to render an ownership chain in a dashboard
// without carrying the full API type.
type OwnerReference struct {
	Name string
	Kind string
	UID  string
}

// ContainerImage is the normalized {name, image, image_tag} shape
// shared by the workload kinds' main_container field and the pod
// kind's containers list.
type ContainerImage struct {
	Name     string
	Image    string
	ImageTag string
}

// ReplicaCounts is the normalized replicas field shared by Deployment
// and StatefulSet records. Desired is a pointer so "desired undefined"
// (no replica count reported by the server) is distinguishable from
// "desired == 0" per the status-derivation rule in status.go.
type ReplicaCounts struct {
	Desired   *int32
	Ready     int32
	Available int32
	Updated   int32
}

// WorkloadStatus is the derived health classification shared by
// Deployment and StatefulSet records.
type WorkloadStatus string

const (
	WorkloadHealthy     WorkloadStatus = "healthy"
	WorkloadProgressing WorkloadStatus = "progressing"
	WorkloadScaledZero  WorkloadStatus = "scaled_zero"
	WorkloadError       WorkloadStatus = "error"
)

// PodStatus is the derived health classification for a Pod record.
type PodStatus string

const (
	PodRunning     PodStatus = "running"
	PodSucceeded   PodStatus = "succeeded"
	PodPending     PodStatus = "pending"
	PodFailed      PodStatus = "failed"
	PodTerminating PodStatus = "terminating"
	PodError       PodStatus = "error"
)

// NamespacePhase mirrors the Kubernetes namespace phase.
type NamespacePhase string

const (
	NamespaceActive      NamespacePhase = "Active"
	NamespaceTerminating NamespacePhase = "Terminating"
	NamespaceUnknown     NamespacePhase = "Unknown"
)

// Record is the immutable, normalized value a Watcher produces from a
// raw API object and hands to the Store. Exactly one of the
// kind-specific payload fields is populated, matching Identity.Kind —
// a tagged struct rather than a heterogeneous map, so the wire type is
// typed all the way up from the facade boundary.
type Record struct {
	Identity

	Labels          map[string]string
	ResourceVersion string
	UID             string
	CreationTime    time.Time

	// NamespaceDetail, Workload and Pod are named to avoid shadowing
	// the embedded Identity.Namespace/Name string fields that store
	// keying depends on; exactly one is populated, matching Identity.Kind.
	NamespaceDetail *NamespaceRecord `json:",omitempty"`
	Workload        *WorkloadRecord  `json:",omitempty"`
	Pod             *PodRecord       `json:",omitempty"`
}

// NamespaceRecord holds the fields specific to kind=namespace.
type NamespaceRecord struct {
	Phase NamespacePhase
}

// WorkloadRecord holds the fields shared by kind=deployment and
// kind=stateful_set.
type WorkloadRecord struct {
	Replicas        ReplicaCounts
	MainContainer   ContainerImage
	OwnerReferences []OwnerReference
	Status          WorkloadStatus
}

// PodRecord holds the fields specific to kind=pod.
type PodRecord struct {
	Phase           string
	Containers      []ContainerImage
	PodIP           string
	HostIP          string
	StartedAt       time.Time
	OwnerReferences []OwnerReference
	Status          PodStatus
}

// DeepCopy returns an independent copy of the record so that
// subscribers receiving it from the Store cannot mutate shared state.
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	cp := *r

	if r.Labels != nil {
		cp.Labels = make(map[string]string, len(r.Labels))
		for k, v := range r.Labels {
			cp.Labels[k] = v
		}
	}
	if r.NamespaceDetail != nil {
		ns := *r.NamespaceDetail
		cp.NamespaceDetail = &ns
	}
	if r.Workload != nil {
		wl := *r.Workload
		if r.Workload.Replicas.Desired != nil {
			d := *r.Workload.Replicas.Desired
			wl.Replicas.Desired = &d
		}
		wl.OwnerReferences = append([]OwnerReference(nil), r.Workload.OwnerReferences...)
		cp.Workload = &wl
	}
	if r.Pod != nil {
		pod := *r.Pod
		pod.Containers = append([]ContainerImage(nil), r.Pod.Containers...)
		pod.OwnerReferences = append([]OwnerReference(nil), r.Pod.OwnerReferences...)
		cp.Pod = &pod
	}

	return &cp
}
