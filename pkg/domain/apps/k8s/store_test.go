package k8s_test

import (
	"context"
	"errors"
	"testing"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/1800agents/saki/pkg/cluster"
	clustermock "github.com/1800agents/saki/pkg/cluster/mock"
	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps"
	"github.com/1800agents/saki/pkg/domain/apps/codec"
	k8sstore "github.com/1800agents/saki/pkg/domain/apps/k8s"
	"github.com/1800agents/saki/pkg/domain/apps/names"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
	"github.com/1800agents/saki/pkg/utils/pointer"
)

func record() domain.AppRecord {
	return domain.AppRecord{
		AppID:        "0193b2f0-4b7e-7f7e-8a3c-9a4f6d2e1c00",
		DeploymentID: "0193b2f0-5555-7f7e-8a3c-9a4f6d2e1c11",
		Owner:        "alice@example.com",
		Name:         "my-app",
		Description:  "a demo app",
		Image:        "registry.saki.dev/alice@example.com/my-app:abc1234",
		URL:          "https://my-app.apps.saki.dev",
		Status:       domain.Deploying,
		CreatedAt:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
		TTLExpiry:    time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC),
	}
}

// storedDeployment is a workload object as the orchestrator would hold
// it: annotations written by a past upsert, live status fields.
func storedDeployment(r domain.AppRecord) *kubeapps.Deployment {
	return &kubeapps.Deployment{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:            names.ForDeployment(r.Name, r.AppID),
			Labels:          codec.Labels(r),
			Annotations:     codec.Annotations(r),
			ResourceVersion: "1234",
			Generation:      2,
		},
		Spec: kubeapps.DeploymentSpec{
			Replicas: pointer.Ref(int32(1)),
			Template: kubecore.PodTemplateSpec{
				Spec: kubecore.PodSpec{
					Containers: []kubecore.Container{
						{Name: "app", Image: r.Image},
					},
				},
			},
		},
		Status: kubeapps.DeploymentStatus{
			Replicas:           1,
			ReadyReplicas:      1,
			AvailableReplicas:  1,
			ObservedGeneration: 2,
		},
	}
}

func notFound(resource string, name string) error {
	return kubeerr.NewNotFound(schema.GroupResource{Resource: resource}, name)
}

func TestFindByOwnerAndName(t *testing.T) {
	ctx := context.Background()

	t.Run("no matching object means no app", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{}, nil
		}

		got, err := k8sstore.New(c).FindByOwnerAndName(ctx, "alice@example.com", "my-app")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected no record, got %+v", got)
		}
	})

	t.Run("one matching object decodes with a derived status", func(t *testing.T) {
		r := record()
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, namespace string, ls cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			if namespace != c.Namespace() {
				t.Errorf("unexpected namespace: %s", namespace)
			}
			for k, v := range codec.IdentitySelector(r.Owner, r.Name) {
				if ls[k] != v {
					t.Errorf("selector is missing %s=%s: %v", k, v, ls)
				}
			}
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}

		got, err := k8sstore.New(c).FindByOwnerAndName(ctx, r.Owner, r.Name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}

		// status comes from the live object, not the annotation.
		if got.Status != domain.Healthy {
			t.Errorf("status should be derived as healthy, got %s", got.Status)
		}
		want := r
		want.Status = domain.Healthy
		if !got.Equal(want) {
			t.Errorf("record mismatch. (actual, expected) = (%+v, %+v)", *got, want)
		}
	})

	t.Run("two matching objects are a consistency violation", func(t *testing.T) {
		r := record()
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r), *storedDeployment(r)}, nil
		}

		_, err := k8sstore.New(c).FindByOwnerAndName(ctx, r.Owner, r.Name)
		if !kerr.AsConsistency(err) {
			t.Errorf("expected ErrConsistency, got %v", err)
		}
	})

	t.Run("an undecodable object is not an app", func(t *testing.T) {
		r := record()
		depl := storedDeployment(r)
		delete(depl.ObjectMeta.Annotations, codec.AnnotAppID)

		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*depl}, nil
		}

		got, err := k8sstore.New(c).FindByOwnerAndName(ctx, r.Owner, r.Name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected no record, got %+v", got)
		}
	})
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("one matching object decodes with a derived status", func(t *testing.T) {
		r := record()
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, ls cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			for k, v := range codec.AppIDSelector(r.AppID) {
				if ls[k] != v {
					t.Errorf("selector is missing %s=%s: %v", k, v, ls)
				}
			}
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}

		got, err := k8sstore.New(c).FindByID(ctx, r.AppID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}
		if got.AppID != r.AppID || got.Status != domain.Healthy {
			t.Errorf("record mismatch: %+v", *got)
		}
	})

	t.Run("no matching object means no app", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{}, nil
		}

		got, err := k8sstore.New(c).FindByID(ctx, record().AppID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected no record, got %+v", got)
		}
	})

	t.Run("two matching objects are a consistency violation", func(t *testing.T) {
		r := record()
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r), *storedDeployment(r)}, nil
		}

		if _, err := k8sstore.New(c).FindByID(ctx, r.AppID); !kerr.AsConsistency(err) {
			t.Errorf("expected ErrConsistency, got %v", err)
		}
	})
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()

	older := record()
	newer := record()
	newer.Name = "other-app"
	newer.AppID = "0193b2f0-9999-7f7e-8a3c-9a4f6d2e1c22"
	newer.UpdatedAt = older.UpdatedAt.Add(time.Hour)

	undecodable := storedDeployment(record())
	delete(undecodable.ObjectMeta.Annotations, codec.AnnotOwner)

	c, client := clustermock.NewCluster()
	client.Impl.FindDeployments = func(_ context.Context, _ string, ls cluster.LabelSelector) ([]kubeapps.Deployment, error) {
		for k, v := range codec.OwnerSelector(older.Owner) {
			if ls[k] != v {
				t.Errorf("selector is missing %s=%s: %v", k, v, ls)
			}
		}
		return []kubeapps.Deployment{
			*storedDeployment(older), *undecodable, *storedDeployment(newer),
		}, nil
	}

	got, err := k8sstore.New(c).ListByOwner(ctx, older.Owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 records (undecodable one skipped), got %d", len(got))
	}
	if got[0].Name != newer.Name || got[1].Name != older.Name {
		t.Errorf(
			"records should be sorted most recently updated first: (%s, %s)",
			got[0].Name, got[1].Name,
		)
	}
}

func TestUpsert_CreatesMissingObjects(t *testing.T) {
	ctx := context.Background()
	r := record()
	w := apps.Workload{
		Record: r,
		Host:   "my-app.apps.saki.dev",
		Env:    map[string]string{"PORT": "8080", "DATABASE_URL": "postgres://..."},
	}

	c, client := clustermock.NewCluster()
	client.Impl.GetDeployment = func(_ context.Context, _ string, name string) (*kubeapps.Deployment, error) {
		return nil, notFound("deployments", name)
	}
	client.Impl.GetService = func(_ context.Context, _ string, name string) (*kubecore.Service, error) {
		return nil, notFound("services", name)
	}
	client.Impl.GetIngress = func(_ context.Context, _ string, name string) (*kubenet.Ingress, error) {
		return nil, notFound("ingresses", name)
	}
	client.Impl.CreateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
		if depl.ObjectMeta.Name != names.ForDeployment(r.Name, r.AppID) {
			t.Errorf("unexpected workload object name: %s", depl.ObjectMeta.Name)
		}
		if depl.Spec.Replicas == nil || *depl.Spec.Replicas != 1 {
			t.Errorf("a fresh upsert should ask for one replica: %v", depl.Spec.Replicas)
		}
		cont := depl.Spec.Template.Spec.Containers
		if len(cont) != 1 || cont[0].Name != "app" || cont[0].Image != r.Image {
			t.Errorf("unexpected containers: %+v", cont)
		}
		if len(cont) == 1 {
			// env must be rendered in key order.
			if len(cont[0].Env) != 2 ||
				cont[0].Env[0].Name != "DATABASE_URL" || cont[0].Env[1].Name != "PORT" {
				t.Errorf("unexpected env: %+v", cont[0].Env)
			}
		}
		return depl, nil
	}
	client.Impl.CreateService = func(_ context.Context, _ string, svc *kubecore.Service) (*kubecore.Service, error) {
		if svc.ObjectMeta.Name != names.ForService(r.Name, r.AppID) {
			t.Errorf("unexpected network-exposure name: %s", svc.ObjectMeta.Name)
		}
		return svc, nil
	}
	client.Impl.CreateIngress = func(_ context.Context, _ string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
		if ing.ObjectMeta.Name != names.ForIngress(r.Name, r.AppID) {
			t.Errorf("unexpected route object name: %s", ing.ObjectMeta.Name)
		}
		if len(ing.Spec.Rules) != 1 || ing.Spec.Rules[0].Host != w.Host {
			t.Errorf("unexpected rules: %+v", ing.Spec.Rules)
		}
		return ing, nil
	}

	got, err := k8sstore.New(c).Upsert(ctx, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AppID != r.AppID || got.Name != r.Name {
		t.Errorf("record mismatch: %+v", got)
	}
	if client.Called.CreateDeployment != 1 || client.Called.CreateService != 1 || client.Called.CreateIngress != 1 {
		t.Errorf(
			"all three kinds should be created: %+v", client.Called,
		)
	}
}

func TestUpsert_ReplacesExistingObjects(t *testing.T) {
	ctx := context.Background()
	r := record()
	w := apps.Workload{Record: r, Host: "my-app.apps.saki.dev"}

	existingDepl := storedDeployment(r)
	existingSvc := &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:            names.ForService(r.Name, r.AppID),
			ResourceVersion: "55",
		},
		Spec: kubecore.ServiceSpec{ClusterIP: "10.0.0.42"},
	}
	existingIng := &kubenet.Ingress{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:            names.ForIngress(r.Name, r.AppID),
			ResourceVersion: "77",
		},
	}

	c, client := clustermock.NewCluster()
	client.Impl.GetDeployment = func(_ context.Context, _ string, _ string) (*kubeapps.Deployment, error) {
		return existingDepl, nil
	}
	client.Impl.GetService = func(_ context.Context, _ string, _ string) (*kubecore.Service, error) {
		return existingSvc, nil
	}
	client.Impl.GetIngress = func(_ context.Context, _ string, _ string) (*kubenet.Ingress, error) {
		return existingIng, nil
	}
	client.Impl.UpdateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
		if depl.ObjectMeta.ResourceVersion != existingDepl.ObjectMeta.ResourceVersion {
			t.Errorf(
				"the write should carry the version token it read: %s",
				depl.ObjectMeta.ResourceVersion,
			)
		}
		return depl, nil
	}
	client.Impl.UpdateService = func(_ context.Context, _ string, svc *kubecore.Service) (*kubecore.Service, error) {
		if svc.Spec.ClusterIP != existingSvc.Spec.ClusterIP {
			t.Errorf("the allocated cluster IP should be preserved: %s", svc.Spec.ClusterIP)
		}
		return svc, nil
	}
	client.Impl.UpdateIngress = func(_ context.Context, _ string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
		if ing.ObjectMeta.ResourceVersion != existingIng.ObjectMeta.ResourceVersion {
			t.Errorf("unexpected version token: %s", ing.ObjectMeta.ResourceVersion)
		}
		return ing, nil
	}

	if _, err := k8sstore.New(c).Upsert(ctx, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Called.CreateDeployment != 0 || client.Called.UpdateDeployment != 1 {
		t.Errorf("existing workload object should be updated, not created: %+v", client.Called)
	}
}

func TestUpsert_SurfacesConflicts(t *testing.T) {
	ctx := context.Background()
	r := record()
	w := apps.Workload{Record: r}

	t.Run("create racing with another create", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.GetDeployment = func(_ context.Context, _ string, name string) (*kubeapps.Deployment, error) {
			return nil, notFound("deployments", name)
		}
		client.Impl.CreateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewAlreadyExists(
				schema.GroupResource{Resource: "deployments"}, depl.ObjectMeta.Name,
			)
		}

		_, err := k8sstore.New(c).Upsert(ctx, w)
		if !kerr.AsConflict(err) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		// no retry on conflict: one create attempt, nothing after it.
		if client.Called.CreateDeployment != 1 || client.Called.CreateService != 0 {
			t.Errorf("write should stop at the conflict: %+v", client.Called)
		}
	})

	t.Run("update racing with another write", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.GetDeployment = func(_ context.Context, _ string, _ string) (*kubeapps.Deployment, error) {
			return storedDeployment(r), nil
		}
		client.Impl.UpdateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewConflict(
				schema.GroupResource{Resource: "deployments"},
				depl.ObjectMeta.Name,
				errors.New("the object has been modified"),
			)
		}

		_, err := k8sstore.New(c).Upsert(ctx, w)
		if !kerr.AsConflict(err) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		if client.Called.UpdateDeployment != 1 {
			t.Errorf("no retry should happen on conflict: %+v", client.Called)
		}
	})
}

func TestSetReplicas(t *testing.T) {
	ctx := context.Background()
	r := record()

	t.Run("an unknown app is missing", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{}, nil
		}

		_, err := k8sstore.New(c).SetReplicas(ctx, r.Owner, r.Name, 0)
		if !kerr.AsMissing(err) {
			t.Errorf("expected ErrMissing, got %v", err)
		}
	})

	t.Run("stopping scales to zero and restamps the annotations", func(t *testing.T) {
		before := storedDeployment(r)

		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*before}, nil
		}
		client.Impl.UpdateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			if depl.Spec.Replicas == nil || *depl.Spec.Replicas != 0 {
				t.Errorf("replicas should be zero: %v", depl.Spec.Replicas)
			}
			if depl.ObjectMeta.ResourceVersion != before.ObjectMeta.ResourceVersion {
				t.Errorf("the write should carry the version token it read")
			}

			annot := depl.ObjectMeta.Annotations
			if annot[codec.AnnotStatus] != string(domain.Stopped) {
				t.Errorf("status annotation should be stopped: %s", annot[codec.AnnotStatus])
			}
			if annot[codec.AnnotUpdatedAt] == codec.Annotations(r)[codec.AnnotUpdatedAt] {
				t.Error("updated-at should be restamped")
			}
			if annot[codec.AnnotCreatedAt] != codec.Annotations(r)[codec.AnnotCreatedAt] {
				t.Error("created-at should be preserved")
			}

			updated := depl.DeepCopy()
			updated.Status = kubeapps.DeploymentStatus{}
			return updated, nil
		}

		got, err := k8sstore.New(c).SetReplicas(ctx, r.Owner, r.Name, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != domain.Stopped {
			t.Errorf("derived status should be stopped, got %s", got.Status)
		}
	})

	t.Run("a racing write surfaces as a conflict", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}
		client.Impl.UpdateDeployment = func(_ context.Context, _ string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
			return nil, kubeerr.NewConflict(
				schema.GroupResource{Resource: "deployments"},
				depl.ObjectMeta.Name,
				errors.New("the object has been modified"),
			)
		}

		_, err := k8sstore.New(c).SetReplicas(ctx, r.Owner, r.Name, 1)
		if !kerr.AsConflict(err) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		if client.Called.UpdateDeployment != 1 {
			t.Errorf("no retry should happen on conflict: %+v", client.Called)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := record()

	t.Run("an unknown app is missing", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{}, nil
		}

		err := k8sstore.New(c).Delete(ctx, r.Owner, r.Name)
		if !kerr.AsMissing(err) {
			t.Errorf("expected ErrMissing, got %v", err)
		}
	})

	t.Run("all three kinds are removed", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}
		client.Impl.DeleteIngress = func(_ context.Context, _ string, name string) error {
			if name != names.ForIngress(r.Name, r.AppID) {
				t.Errorf("unexpected route object name: %s", name)
			}
			return nil
		}
		client.Impl.DeleteService = func(_ context.Context, _ string, name string) error {
			if name != names.ForService(r.Name, r.AppID) {
				t.Errorf("unexpected network-exposure name: %s", name)
			}
			return nil
		}
		client.Impl.DeleteDeployment = func(_ context.Context, _ string, name string) error {
			if name != names.ForDeployment(r.Name, r.AppID) {
				t.Errorf("unexpected workload object name: %s", name)
			}
			return nil
		}

		if err := k8sstore.New(c).Delete(ctx, r.Owner, r.Name); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Called.DeleteIngress != 1 || client.Called.DeleteService != 1 || client.Called.DeleteDeployment != 1 {
			t.Errorf("all three kinds should be deleted: %+v", client.Called)
		}
	})

	t.Run("the deletes are issued together; one failing does not hold the others back", func(t *testing.T) {
		expected := errors.New("fake api outage")

		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}
		client.Impl.DeleteIngress = func(_ context.Context, _ string, _ string) error {
			return expected
		}
		client.Impl.DeleteService = func(_ context.Context, _ string, _ string) error {
			return nil
		}
		client.Impl.DeleteDeployment = func(_ context.Context, _ string, _ string) error {
			return nil
		}

		err := k8sstore.New(c).Delete(ctx, r.Owner, r.Name)
		if !errors.Is(err, expected) {
			t.Errorf("the failing delete should surface: %v", err)
		}
		if client.Called.DeleteIngress != 1 || client.Called.DeleteService != 1 || client.Called.DeleteDeployment != 1 {
			t.Errorf("every kind should still be attempted: %+v", client.Called)
		}
	})

	t.Run("already-gone side objects do not fail the delete", func(t *testing.T) {
		c, client := clustermock.NewCluster()
		client.Impl.FindDeployments = func(_ context.Context, _ string, _ cluster.LabelSelector) ([]kubeapps.Deployment, error) {
			return []kubeapps.Deployment{*storedDeployment(r)}, nil
		}
		client.Impl.DeleteIngress = func(_ context.Context, _ string, name string) error {
			return notFound("ingresses", name)
		}
		client.Impl.DeleteService = func(_ context.Context, _ string, name string) error {
			return notFound("services", name)
		}
		client.Impl.DeleteDeployment = func(_ context.Context, _ string, _ string) error {
			return nil
		}

		if err := k8sstore.New(c).Delete(ctx, r.Owner, r.Name); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
