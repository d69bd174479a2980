package core

import "testing"

func i32(n int32) *int32 { return &n }

func TestDeriveWorkloadStatus(t *testing.T) {
	cases := []struct {
		name string
		r    ReplicaCounts
		want WorkloadStatus
	}{
		{"healthy", ReplicaCounts{Desired: i32(3), Ready: 3}, WorkloadHealthy},
		{"progressing", ReplicaCounts{Desired: i32(3), Ready: 1}, WorkloadProgressing},
		{"scaled_zero", ReplicaCounts{Desired: i32(0), Ready: 0}, WorkloadScaledZero},
		{"error_undefined_desired", ReplicaCounts{Desired: nil, Ready: 0}, WorkloadError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeriveWorkloadStatus(c.r); got != c.want {
				t.Errorf("DeriveWorkloadStatus(%+v) = %s, want %s", c.r, got, c.want)
			}
		})
	}
}

// TestDeriveWorkloadStatusScenarioS2 walks a deployment transitioning
// through ready counts and finally losing its desired count
// altogether.
func TestDeriveWorkloadStatusScenarioS2(t *testing.T) {
	r := ReplicaCounts{Desired: i32(3), Ready: 3}
	if got := DeriveWorkloadStatus(r); got != WorkloadHealthy {
		t.Fatalf("step 1: want healthy, got %s", got)
	}

	r.Ready = 1
	if got := DeriveWorkloadStatus(r); got != WorkloadProgressing {
		t.Fatalf("step 2: want progressing, got %s", got)
	}

	r.Desired = i32(0)
	if got := DeriveWorkloadStatus(r); got != WorkloadScaledZero {
		t.Fatalf("step 3: want scaled_zero, got %s", got)
	}

	r.Desired = nil
	if got := DeriveWorkloadStatus(r); got != WorkloadError {
		t.Fatalf("step 4: want error, got %s", got)
	}
}

func TestDerivePodStatus(t *testing.T) {
	cases := map[string]PodStatus{
		"Running":              PodRunning,
		"Succeeded":            PodSucceeded,
		"Pending":              PodPending,
		"Failed":               PodFailed,
		"Unknown":              PodError,
		"Terminating":          PodTerminating,
		"NodeLost-Terminating": PodTerminating,
	}
	for phase, want := range cases {
		if got := DerivePodStatus(phase); got != want {
			t.Errorf("DerivePodStatus(%q) = %s, want %s", phase, got, want)
		}
	}
}

func TestImageTag(t *testing.T) {
	cases := map[string]string{
		"nginx":                           "latest",
		"nginx:1.27":                      "1.27",
		"registry.local:5000/app":         "5000/app",
		"registry.local:5000/app:v2":      "v2",
		"ghcr.io/org/image:sha256-deadbeef": "sha256-deadbeef",
	}
	for image, want := range cases {
		if got := ImageTag(image); got != want {
			t.Errorf("ImageTag(%q) = %q, want %q", image, got, want)
		}
	}
}
