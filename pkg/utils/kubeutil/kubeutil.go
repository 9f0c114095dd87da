package kubeutil

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// FindKubeconfig searches for a kubeconfig file.
//
// Priority (least to most):
//
// - `~/.kube/config`
//
// - environment variable `KUBECONFIG`
//
// - `explicit` (a command line flag, usually)
//
// Returns "" when no file is found at any of these locations.
// In that case, the caller should fall back to in-cluster config.
func FindKubeconfig(explicit string) string {
	kubeconfig := ""

	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	if k := os.Getenv("KUBECONFIG"); k != "" {
		kubeconfig = k
	}

	if explicit != "" {
		kubeconfig = explicit
	}

	if kubeconfig != "" {
		stat, err := os.Stat(kubeconfig)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			kubeconfig = ""
		}
	}

	return kubeconfig
}

// ConnectToK8s builds a clientset from the kubeconfig found by
// FindKubeconfig, or from in-cluster config when no file exists.
//
// The returned error names which credential source was attempted,
// so that a misconfigured deploy fails fast with a usable diagnostic.
func ConnectToK8s(explicitKubeconfig string) (*kubernetes.Clientset, error) {
	kubeconfig := FindKubeconfig(explicitKubeconfig)

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("no kubeconfig file found and in-cluster config unavailable: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("kubeconfig %s can not be loaded: %w", kubeconfig, err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("can not build kubernetes client: %w", err)
	}
	return clientset, nil
}
