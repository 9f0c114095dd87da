package mock

import (
	"context"
	"errors"
	"io"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"

	"github.com/1800agents/saki/pkg/cluster"
)

// NewCluster returns a cluster.Cluster backed by a fresh MockClient.
//
// # returns
//
//   - cluster.Cluster : using *MockClient as base client
//   - *MockClient : mock object.
//     you can fake orchestrator behaviours or spy its usage.
func NewCluster() (cluster.Cluster, *MockClient) {
	client := NewMockClient()
	return cluster.AttachCluster(client, "fake-namespace"), client
}

type MockClient struct {
	Impl struct {
		GetDeployment    func(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
		CreateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		UpdateDeployment func(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
		DeleteDeployment func(ctx context.Context, namespace string, name string) error
		FindDeployments  func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.Deployment, error)

		GetService    func(ctx context.Context, namespace string, name string) (*kubecore.Service, error)
		CreateService func(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
		UpdateService func(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
		DeleteService func(ctx context.Context, namespace string, name string) error

		GetIngress    func(ctx context.Context, namespace string, name string) (*kubenet.Ingress, error)
		CreateIngress func(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error)
		UpdateIngress func(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error)
		DeleteIngress func(ctx context.Context, namespace string, name string) error

		FindPods func(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubecore.Pod, error)

		Log func(ctx context.Context, namespace string, podname string, opts cluster.LogOptions) (io.ReadCloser, error)
	}
	Called struct {
		GetDeployment    uint64
		CreateDeployment uint64
		UpdateDeployment uint64
		DeleteDeployment uint64
		FindDeployments  uint64

		GetService    uint64
		CreateService uint64
		UpdateService uint64
		DeleteService uint64

		GetIngress    uint64
		CreateIngress uint64
		UpdateIngress uint64
		DeleteIngress uint64

		FindPods uint64

		Log uint64
	}
}

// MockClient implements cluster.K8sClient
var _ cluster.K8sClient = &MockClient{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	m.Called.GetDeployment += 1
	if m.Impl.GetDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetDeployment(ctx, namespace, name)
}

func (m *MockClient) CreateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.CreateDeployment += 1
	if m.Impl.CreateDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateDeployment(ctx, namespace, depl)
}

func (m *MockClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	m.Called.UpdateDeployment += 1
	if m.Impl.UpdateDeployment == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpdateDeployment(ctx, namespace, depl)
}

func (m *MockClient) DeleteDeployment(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteDeployment += 1
	if m.Impl.DeleteDeployment == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteDeployment(ctx, namespace, name)
}

func (m *MockClient) FindDeployments(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.Deployment, error) {
	m.Called.FindDeployments += 1
	if m.Impl.FindDeployments == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindDeployments(ctx, namespace, ls)
}

func (m *MockClient) GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
	m.Called.GetService += 1
	if m.Impl.GetService == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetService(ctx, namespace, name)
}

func (m *MockClient) CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	m.Called.CreateService += 1
	if m.Impl.CreateService == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateService(ctx, namespace, svc)
}

func (m *MockClient) UpdateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	m.Called.UpdateService += 1
	if m.Impl.UpdateService == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpdateService(ctx, namespace, svc)
}

func (m *MockClient) DeleteService(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteService += 1
	if m.Impl.DeleteService == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteService(ctx, namespace, name)
}

func (m *MockClient) GetIngress(ctx context.Context, namespace string, name string) (*kubenet.Ingress, error) {
	m.Called.GetIngress += 1
	if m.Impl.GetIngress == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetIngress(ctx, namespace, name)
}

func (m *MockClient) CreateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
	m.Called.CreateIngress += 1
	if m.Impl.CreateIngress == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CreateIngress(ctx, namespace, ing)
}

func (m *MockClient) UpdateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
	m.Called.UpdateIngress += 1
	if m.Impl.UpdateIngress == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpdateIngress(ctx, namespace, ing)
}

func (m *MockClient) DeleteIngress(ctx context.Context, namespace string, name string) error {
	m.Called.DeleteIngress += 1
	if m.Impl.DeleteIngress == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteIngress(ctx, namespace, name)
}

func (m *MockClient) FindPods(ctx context.Context, namespace string, ls cluster.LabelSelector) ([]kubecore.Pod, error) {
	m.Called.FindPods += 1
	if m.Impl.FindPods == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindPods(ctx, namespace, ls)
}

func (m *MockClient) Log(ctx context.Context, namespace string, podname string, opts cluster.LogOptions) (io.ReadCloser, error) {
	m.Called.Log += 1
	if m.Impl.Log == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Log(ctx, namespace, podname, opts)
}
