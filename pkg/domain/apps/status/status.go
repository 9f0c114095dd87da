// Package status derives the lifecycle status of an app from the
// observed state of its workload object.
//
// Status is never stored and re-read: every read derives it afresh, so
// a crashed control plane never serves a stale lifecycle state.
package status

import (
	"strings"

	kubeapps "k8s.io/api/apps/v1"

	"github.com/1800agents/saki/pkg/domain"
)

// Observed is the slice of workload-object state the derivation reads.
// It is a plain value: deriving needs no cluster and no clock.
type Observed struct {
	// a deletion has been requested for the object.
	DeletionRequested bool

	DesiredReplicas int32

	// condition of type "Progressing", if present.
	Progressing *Condition

	Replicas          int32
	ReadyReplicas     int32
	AvailableReplicas int32

	Generation         int64
	ObservedGeneration int64
}

type Condition struct {
	Status string
	Reason string
}

// reason set on the Progressing condition when the rollout deadline
// has passed. Fixed by the orchestrator's deployment controller.
const reasonDeadlineExceeded = "progressdeadlineexceeded"

// Derive maps observed state to a status. The precedence is
// load-bearing:
//
//  1. deletion requested        -> deleting
//  2. desired replicas == 0     -> stopped
//  3. progressing == False with
//     deadline-exceeded reason  -> failed
//  4. ready & available pods,
//     and the controller has
//     seen the latest spec      -> healthy
//  5. no pods materialized yet  -> pending
//  6. otherwise                 -> deploying
//
// A stopped app must never report failed off stale conditions, and a
// deleting app reports nothing but deleting.
func Derive(o Observed) domain.Status {
	if o.DeletionRequested {
		return domain.Deleting
	}

	if o.DesiredReplicas == 0 {
		return domain.Stopped
	}

	if c := o.Progressing; c != nil {
		if strings.EqualFold(c.Status, "False") &&
			strings.EqualFold(c.Reason, reasonDeadlineExceeded) {
			return domain.Failed
		}
	}

	if 0 < o.ReadyReplicas && 0 < o.AvailableReplicas &&
		o.Generation <= o.ObservedGeneration {
		return domain.Healthy
	}

	if o.Replicas == 0 {
		return domain.Pending
	}

	return domain.Deploying
}

// Observe extracts the Observed value from a deployment object.
func Observe(depl *kubeapps.Deployment) Observed {
	o := Observed{
		DeletionRequested:  depl.ObjectMeta.DeletionTimestamp != nil,
		DesiredReplicas:    1,
		Replicas:           depl.Status.Replicas,
		ReadyReplicas:      depl.Status.ReadyReplicas,
		AvailableReplicas:  depl.Status.AvailableReplicas,
		Generation:         depl.ObjectMeta.Generation,
		ObservedGeneration: depl.Status.ObservedGeneration,
	}

	if depl.Spec.Replicas != nil {
		o.DesiredReplicas = *depl.Spec.Replicas
	}

	for _, c := range depl.Status.Conditions {
		if c.Type == kubeapps.DeploymentProgressing {
			o.Progressing = &Condition{
				Status: string(c.Status),
				Reason: c.Reason,
			}
			break
		}
	}

	return o
}

// OfDeployment is shorthand for Derive(Observe(depl)).
func OfDeployment(depl *kubeapps.Deployment) domain.Status {
	return Derive(Observe(depl))
}
