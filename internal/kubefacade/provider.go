package kubefacade

import (
	"fmt"
	"log/slog"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Mode selects how the facade authenticates against the cluster.
type Mode string

const (
	// ModeInCluster uses the in-cluster service account, the normal
	// mode when the gateway itself runs as a pod.
	ModeInCluster Mode = "in_cluster"
	// ModeKubeconfig loads an explicit kubeconfig file, the normal
	// mode for local development against a remote or kind cluster.
	ModeKubeconfig Mode = "kubeconfig"
	// ModeMock uses no real cluster at all; see NewMock.
	ModeMock Mode = "mock"
)

// ProvideRestConfig resolves a *rest.Config for Mode. In-cluster config
// falls back to the default kubeconfig location when not running
// inside a pod, a common local-dev affordance; ModeKubeconfig uses
// kubeconfigPath, or the default kubeconfig location when it is empty.
func ProvideRestConfig(mode Mode, kubeconfigPath string) (*rest.Config, error) {
	switch mode {
	case ModeInCluster:
		cfg, err := rest.InClusterConfig()
		if err == nil {
			return cfg, nil
		}
		slog.Warn("in-cluster config not available, falling back to kubeconfig", "error", err)
		return clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
	case ModeKubeconfig:
		if kubeconfigPath == "" {
			kubeconfigPath = clientcmd.RecommendedHomeFile
		}
		return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	case ModeMock:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown kube mode %q", mode)
	}
}
