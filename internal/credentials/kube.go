package credentials

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubeSecrets reads passwords from Kubernetes secrets.
type KubeSecrets struct {
	clientset kubernetes.Interface
}

// NewKubeSecrets builds a clientset from the in-cluster config, falling
// back to kubeconfig (optionally pinned to kubeContext) for local use.
func NewKubeSecrets(kubeContext string) (*KubeSecrets, error) {
	restConfig, err := buildRESTConfig(kubeContext)
	if err != nil {
		return nil, fmt.Errorf("building K8s config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating K8s clientset: %w", err)
	}
	return &KubeSecrets{clientset: clientset}, nil
}

// newKubeSecretsWithClient wraps an existing clientset (tests use the fake).
func newKubeSecretsWithClient(cs kubernetes.Interface) *KubeSecrets {
	return &KubeSecrets{clientset: cs}
}

// ReadSecret returns data[key] of the named secret.
func (k *KubeSecrets) ReadSecret(ctx context.Context, namespace, name, key string) ([]byte, error) {
	secret, err := k.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	data, ok := secret.Data[key]
	if !ok {
		return nil, fmt.Errorf("secret %s/%s has no key %q", namespace, name, key)
	}
	return data, nil
}

func buildRESTConfig(kubeContext string) (*rest.Config, error) {
	cfg, err := rest.InClusterConfig()
	if err == nil {
		return cfg, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
}

var _ SecretReader = (*KubeSecrets)(nil)
