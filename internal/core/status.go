package core

import "strings"

// DeriveWorkloadStatus implements the status-derivation rule shared by
// Deployment and StatefulSet records: desired==0 takes priority over
// the ready comparison, desired undefined is always an error
// regardless of ready, and otherwise ready==desired is healthy.
// StatefulSet callers pass ReadyReplicas in place of AvailableReplicas
// per the "ready stands in for available" rule.
func DeriveWorkloadStatus(r ReplicaCounts) WorkloadStatus {
	if r.Desired == nil {
		return WorkloadError
	}
	if *r.Desired == 0 {
		return WorkloadScaledZero
	}
	if r.Ready == *r.Desired {
		return WorkloadHealthy
	}
	return WorkloadProgressing
}

// DerivePodStatus implements the pod status-derivation rule: the phase
// is lower-cased and mapped onto the closed status set, with
// "terminating" taking priority whenever the raw phase
// string contains it (Kubernetes has no formal Terminating phase; it
// is inferred by controllers and dashboards alike from a deletion
// timestamp or a phase string carrying the word).
func DerivePodStatus(phase string) PodStatus {
	lower := strings.ToLower(phase)
	if strings.Contains(lower, "terminating") {
		return PodTerminating
	}
	switch lower {
	case "running":
		return PodRunning
	case "succeeded":
		return PodSucceeded
	case "pending":
		return PodPending
	case "failed":
		return PodFailed
	default:
		return PodError
	}
}

// ImageTag returns the suffix after the last colon in image, or
// "latest" if image carries no colon.
func ImageTag(image string) string {
	idx := strings.LastIndex(image, ":")
	if idx < 0 {
		return "latest"
	}
	return image[idx+1:]
}
