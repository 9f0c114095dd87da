// Package cluster wraps the orchestrator clientset behind a flat
// interface, so the domain layer can be tested against a hand mock.
package cluster

import (
	"context"
	"io"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
)

// LogOptions narrow a pod log request.
type LogOptions struct {
	// container to read from. Empty means "the only container";
	// the orchestrator rejects that for multi-container pods.
	Container string

	// at most this many trailing lines. Zero means no limit.
	TailLines int64

	// prefix each line with its timestamp.
	Timestamps bool
}

// subset of k8s.Clientset
type K8sClient interface {
	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	DeleteDeployment(ctx context.Context, namespace string, name string) error
	FindDeployments(ctx context.Context, namespace string, labelSelector LabelSelector) ([]kubeapps.Deployment, error)

	GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error)
	CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
	UpdateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
	DeleteService(ctx context.Context, namespace string, name string) error

	GetIngress(ctx context.Context, namespace string, name string) (*kubenet.Ingress, error)
	CreateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error)
	UpdateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error)
	DeleteIngress(ctx context.Context, namespace string, name string) error

	FindPods(ctx context.Context, namespace string, labelSelector LabelSelector) ([]kubecore.Pod, error)

	Log(ctx context.Context, namespace string, podname string, opts LogOptions) (io.ReadCloser, error)
}

// A wrapper for the type k8s.Clientset; because it does not prefer
// method chain-style invocations of that type.
type k8sClient struct {
	client *k8s.Clientset
}

// type check: k8sClient implements K8sClient
var _ K8sClient = &k8sClient{}

func WrapK8sClient(c *k8s.Clientset) K8sClient {
	return &k8sClient{client: c}
}

func (k *k8sClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Create(ctx, depl, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Update(ctx, depl, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	return k.client.AppsV1().Deployments(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (k *k8sClient) FindDeployments(ctx context.Context, namespace string, labels LabelSelector) ([]kubeapps.Deployment, error) {
	resp, err := k.client.AppsV1().Deployments(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labels.QueryString(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Create(ctx, svc, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Update(ctx, svc, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteService(ctx context.Context, namespace string, name string) error {
	return k.client.CoreV1().Services(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (k *k8sClient) GetIngress(ctx context.Context, namespace string, name string) (*kubenet.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Create(ctx, ing, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) UpdateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
	return k.client.NetworkingV1().Ingresses(namespace).Update(ctx, ing, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) DeleteIngress(ctx context.Context, namespace string, name string) error {
	return k.client.NetworkingV1().Ingresses(namespace).Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

func (k *k8sClient) FindPods(ctx context.Context, namespace string, labels LabelSelector) ([]kubecore.Pod, error) {
	resp, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labels.QueryString(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) Log(ctx context.Context, namespace string, podname string, opts LogOptions) (io.ReadCloser, error) {
	logopts := &kubecore.PodLogOptions{
		Container:  opts.Container,
		Timestamps: opts.Timestamps,
	}
	if 0 < opts.TailLines {
		tail := opts.TailLines
		logopts.TailLines = &tail
	}
	return k.client.
		CoreV1().
		Pods(namespace).
		GetLogs(podname, logopts).
		Stream(ctx)
}

// Cluster binds a client to the one namespace this control plane
// manages.
type Cluster interface {
	Namespace() string
	Client() K8sClient
}

type k8sCluster struct {
	client    K8sClient
	namespace string
}

var _ Cluster = &k8sCluster{}

// AttachCluster binds client and namespace.
func AttachCluster(client K8sClient, namespace string) Cluster {
	return &k8sCluster{client: client, namespace: namespace}
}

func (c *k8sCluster) Namespace() string {
	return c.namespace
}

func (c *k8sCluster) Client() K8sClient {
	return c.client
}
