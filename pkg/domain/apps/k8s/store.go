// Package k8s is the production WorkloadStore: apps live as a
// deployment + service + ingress triple in one namespace, and nothing
// else remembers them.
package k8s

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/1800agents/saki/pkg/cluster"
	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps"
	"github.com/1800agents/saki/pkg/domain/apps/codec"
	"github.com/1800agents/saki/pkg/domain/apps/names"
	"github.com/1800agents/saki/pkg/domain/apps/status"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
	"github.com/1800agents/saki/pkg/utils/pointer"
)

const (
	containerName = "app"
	containerPort = 8080
	servicePort   = 80
)

type store struct {
	cluster cluster.Cluster
	now     func() time.Time
}

var _ apps.WorkloadStore = &store{}

// New returns a WorkloadStore over the given cluster.
func New(c cluster.Cluster) apps.WorkloadStore {
	return &store{cluster: c, now: time.Now}
}

func selector(labels map[string]string) cluster.LabelSelector {
	return cluster.LabelSelector(labels)
}

// recordOf rebuilds the record held by a workload object. The status
// field is always derived from the object, never read back.
func recordOf(depl *kubeapps.Deployment) (domain.AppRecord, error) {
	fallbackImage := ""
	for _, c := range depl.Spec.Template.Spec.Containers {
		if c.Name == containerName {
			fallbackImage = c.Image
			break
		}
	}

	r, err := codec.Decode(depl.ObjectMeta.Annotations, fallbackImage)
	if err != nil {
		return domain.AppRecord{}, err
	}
	r.Status = status.OfDeployment(depl)
	return r, nil
}

// findOne resolves an identity selector to its workload object.
// (nil, nil) when there is none; the selector must identify at most
// one app, so more than one match is a consistency violation.
func (s *store) findOne(ctx context.Context, labels map[string]string, what string) (*kubeapps.Deployment, error) {
	depls, err := s.cluster.Client().FindDeployments(
		ctx, s.cluster.Namespace(), selector(labels),
	)
	if err != nil {
		return nil, err
	}

	switch len(depls) {
	case 0:
		return nil, nil
	case 1:
		return &depls[0], nil
	default:
		return nil, kerr.NewConsistency(fmt.Sprintf(
			"%d workload objects match %s; expected at most one",
			len(depls), what,
		))
	}
}

func (s *store) find(ctx context.Context, labels map[string]string, what string) (*domain.AppRecord, error) {
	depl, err := s.findOne(ctx, labels, what)
	if err != nil || depl == nil {
		return nil, err
	}

	r, err := recordOf(depl)
	if err != nil {
		if kerr.AsIncompleteRecord(err) {
			// an undecodable object is not an app.
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *store) FindByOwnerAndName(ctx context.Context, owner string, name string) (*domain.AppRecord, error) {
	return s.find(
		ctx, codec.IdentitySelector(owner, name),
		fmt.Sprintf("app %q of owner %q", name, owner),
	)
}

func (s *store) FindByID(ctx context.Context, appID string) (*domain.AppRecord, error) {
	return s.find(
		ctx, codec.AppIDSelector(appID),
		fmt.Sprintf("app id %q", appID),
	)
}

func (s *store) list(ctx context.Context, labels map[string]string) ([]domain.AppRecord, error) {
	depls, err := s.cluster.Client().FindDeployments(
		ctx, s.cluster.Namespace(), selector(labels),
	)
	if err != nil {
		return nil, err
	}

	records := make([]domain.AppRecord, 0, len(depls))
	for i := range depls {
		r, err := recordOf(&depls[i])
		if err != nil {
			if kerr.AsIncompleteRecord(err) {
				continue
			}
			return nil, err
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[j].UpdatedAt.Before(records[i].UpdatedAt)
	})
	return records, nil
}

func (s *store) ListByOwner(ctx context.Context, owner string) ([]domain.AppRecord, error) {
	return s.list(ctx, codec.OwnerSelector(owner))
}

func (s *store) ListAll(ctx context.Context) ([]domain.AppRecord, error) {
	return s.list(ctx, codec.ManagedSelector())
}

func (s *store) Upsert(ctx context.Context, w apps.Workload) (domain.AppRecord, error) {
	applied, err := s.applyDeployment(ctx, buildDeployment(w))
	if err != nil {
		return domain.AppRecord{}, err
	}
	if err := s.applyService(ctx, buildService(w)); err != nil {
		return domain.AppRecord{}, err
	}
	if err := s.applyIngress(ctx, buildIngress(w)); err != nil {
		return domain.AppRecord{}, err
	}
	return recordOf(applied)
}

func (s *store) applyDeployment(ctx context.Context, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	client, namespace := s.cluster.Client(), s.cluster.Namespace()

	existing, err := client.GetDeployment(ctx, namespace, depl.ObjectMeta.Name)
	if err != nil {
		if !kubeerr.IsNotFound(err) {
			return nil, err
		}
		created, err := client.CreateDeployment(ctx, namespace, depl)
		if kubeerr.IsAlreadyExists(err) {
			return nil, kerr.NewConflictCausedBy(
				"workload object "+depl.ObjectMeta.Name+" appeared concurrently", err,
			)
		}
		return created, err
	}

	depl.ObjectMeta.ResourceVersion = existing.ObjectMeta.ResourceVersion
	updated, err := client.UpdateDeployment(ctx, namespace, depl)
	if kubeerr.IsConflict(err) {
		return nil, kerr.NewConflictCausedBy(
			"workload object "+depl.ObjectMeta.Name+" changed underneath the write", err,
		)
	}
	return updated, err
}

func (s *store) applyService(ctx context.Context, svc *kubecore.Service) error {
	client, namespace := s.cluster.Client(), s.cluster.Namespace()

	existing, err := client.GetService(ctx, namespace, svc.ObjectMeta.Name)
	if err != nil {
		if !kubeerr.IsNotFound(err) {
			return err
		}
		_, err := client.CreateService(ctx, namespace, svc)
		if kubeerr.IsAlreadyExists(err) {
			return kerr.NewConflictCausedBy(
				"network exposure "+svc.ObjectMeta.Name+" appeared concurrently", err,
			)
		}
		return err
	}

	svc.ObjectMeta.ResourceVersion = existing.ObjectMeta.ResourceVersion
	svc.Spec.ClusterIP = existing.Spec.ClusterIP // immutable once allocated
	_, err = client.UpdateService(ctx, namespace, svc)
	if kubeerr.IsConflict(err) {
		return kerr.NewConflictCausedBy(
			"network exposure "+svc.ObjectMeta.Name+" changed underneath the write", err,
		)
	}
	return err
}

func (s *store) applyIngress(ctx context.Context, ing *kubenet.Ingress) error {
	client, namespace := s.cluster.Client(), s.cluster.Namespace()

	existing, err := client.GetIngress(ctx, namespace, ing.ObjectMeta.Name)
	if err != nil {
		if !kubeerr.IsNotFound(err) {
			return err
		}
		_, err := client.CreateIngress(ctx, namespace, ing)
		if kubeerr.IsAlreadyExists(err) {
			return kerr.NewConflictCausedBy(
				"route object "+ing.ObjectMeta.Name+" appeared concurrently", err,
			)
		}
		return err
	}

	ing.ObjectMeta.ResourceVersion = existing.ObjectMeta.ResourceVersion
	_, err = client.UpdateIngress(ctx, namespace, ing)
	if kubeerr.IsConflict(err) {
		return kerr.NewConflictCausedBy(
			"route object "+ing.ObjectMeta.Name+" changed underneath the write", err,
		)
	}
	return err
}

func (s *store) SetReplicas(ctx context.Context, owner string, name string, replicas int32) (domain.AppRecord, error) {
	depl, err := s.findOne(
		ctx, codec.IdentitySelector(owner, name),
		fmt.Sprintf("app %q of owner %q", name, owner),
	)
	if err != nil {
		return domain.AppRecord{}, err
	}
	if depl == nil {
		return domain.AppRecord{}, kerr.NewMissing(
			"no app " + name + " for owner " + owner,
		)
	}

	depl.Spec.Replicas = pointer.Ref(replicas)

	// the annotation set is kept intact except for the two fields this
	// write changes; the version token read above rides along.
	if depl.ObjectMeta.Annotations == nil {
		depl.ObjectMeta.Annotations = map[string]string{}
	}
	depl.ObjectMeta.Annotations[codec.AnnotUpdatedAt] = s.now().UTC().Format(time.RFC3339Nano)

	annotStatus := domain.Deploying
	if replicas == 0 {
		annotStatus = domain.Stopped
	}
	depl.ObjectMeta.Annotations[codec.AnnotStatus] = string(annotStatus)

	updated, err := s.cluster.Client().UpdateDeployment(ctx, s.cluster.Namespace(), depl)
	if err != nil {
		if kubeerr.IsConflict(err) {
			return domain.AppRecord{}, kerr.NewConflictCausedBy(
				"workload object "+depl.ObjectMeta.Name+" changed underneath the write", err,
			)
		}
		return domain.AppRecord{}, err
	}

	return recordOf(updated)
}

func (s *store) Delete(ctx context.Context, owner string, name string) error {
	depl, err := s.findOne(
		ctx, codec.IdentitySelector(owner, name),
		fmt.Sprintf("app %q of owner %q", name, owner),
	)
	if err != nil {
		return err
	}
	if depl == nil {
		return kerr.NewMissing("no app " + name + " for owner " + owner)
	}

	r, err := recordOf(depl)
	if err != nil {
		if !kerr.AsIncompleteRecord(err) {
			return err
		}
		// undecodable, but still ours: derive the object names from
		// whatever identity the object does carry.
		r = domain.AppRecord{
			Name:  name,
			AppID: depl.ObjectMeta.Annotations[codec.AnnotAppID],
		}
	}

	client, namespace := s.cluster.Client(), s.cluster.Namespace()

	// the three deletes are independent; issue them concurrently and
	// treat already-gone objects as success.
	deletes := []func() error{
		func() error { return client.DeleteIngress(ctx, namespace, names.ForIngress(r.Name, r.AppID)) },
		func() error { return client.DeleteService(ctx, namespace, names.ForService(r.Name, r.AppID)) },
		func() error { return client.DeleteDeployment(ctx, namespace, depl.ObjectMeta.Name) },
	}

	errs := make([]error, len(deletes))
	wg := sync.WaitGroup{}
	for i, del := range deletes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = del()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && !kubeerr.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func buildDeployment(w apps.Workload) *kubeapps.Deployment {
	r := w.Record

	replicas := int32(1)
	if r.Status == domain.Stopped {
		replicas = 0
	}

	return &kubeapps.Deployment{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:        names.ForDeployment(r.Name, r.AppID),
			Labels:      codec.Labels(r),
			Annotations: codec.Annotations(r),
		},
		Spec: kubeapps.DeploymentSpec{
			Replicas:             pointer.Ref(replicas),
			RevisionHistoryLimit: pointer.Ref(int32(2)),
			Selector: &kubeapimeta.LabelSelector{
				MatchLabels: codec.Labels(r),
			},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{
					Labels: codec.Labels(r),
				},
				Spec: kubecore.PodSpec{
					Containers: []kubecore.Container{
						{
							Name:  containerName,
							Image: r.Image,
							Ports: []kubecore.ContainerPort{
								{ContainerPort: containerPort},
							},
							Env: envVars(w.Env),
						},
					},
				},
			},
		},
	}
}

func envVars(env map[string]string) []kubecore.EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]kubecore.EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, kubecore.EnvVar{Name: k, Value: env[k]})
	}
	return vars
}

func buildService(w apps.Workload) *kubecore.Service {
	r := w.Record

	return &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:        names.ForService(r.Name, r.AppID),
			Labels:      codec.Labels(r),
			Annotations: codec.Annotations(r),
		},
		Spec: kubecore.ServiceSpec{
			Type:     kubecore.ServiceTypeClusterIP,
			Selector: codec.Labels(r),
			Ports: []kubecore.ServicePort{
				{
					Name:       "http",
					Port:       servicePort,
					TargetPort: intstr.FromInt(containerPort),
				},
			},
		},
	}
}

func buildIngress(w apps.Workload) *kubenet.Ingress {
	r := w.Record
	pathType := kubenet.PathTypePrefix

	return &kubenet.Ingress{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name:        names.ForIngress(r.Name, r.AppID),
			Labels:      codec.Labels(r),
			Annotations: codec.Annotations(r),
		},
		Spec: kubenet.IngressSpec{
			Rules: []kubenet.IngressRule{
				{
					Host: w.Host,
					IngressRuleValue: kubenet.IngressRuleValue{
						HTTP: &kubenet.HTTPIngressRuleValue{
							Paths: []kubenet.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: kubenet.IngressBackend{
										Service: &kubenet.IngressServiceBackend{
											Name: names.ForService(r.Name, r.AppID),
											Port: kubenet.ServiceBackendPort{
												Number: servicePort,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
