package mock

import (
	"context"
	"errors"

	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps"
)

type WorkloadStore struct {
	Impl struct {
		FindByOwnerAndName func(ctx context.Context, owner string, name string) (*domain.AppRecord, error)
		FindByID           func(ctx context.Context, appID string) (*domain.AppRecord, error)
		ListByOwner        func(ctx context.Context, owner string) ([]domain.AppRecord, error)
		ListAll            func(ctx context.Context) ([]domain.AppRecord, error)
		Upsert             func(ctx context.Context, w apps.Workload) (domain.AppRecord, error)
		SetReplicas        func(ctx context.Context, owner string, name string, replicas int32) (domain.AppRecord, error)
		Delete             func(ctx context.Context, owner string, name string) error
	}
	Called struct {
		FindByOwnerAndName uint64
		FindByID           uint64
		ListByOwner        uint64
		ListAll            uint64
		Upsert             uint64
		SetReplicas        uint64
		Delete             uint64
	}
}

var _ apps.WorkloadStore = &WorkloadStore{}

func New() *WorkloadStore {
	return &WorkloadStore{}
}

func (m *WorkloadStore) FindByOwnerAndName(ctx context.Context, owner string, name string) (*domain.AppRecord, error) {
	m.Called.FindByOwnerAndName += 1
	if m.Impl.FindByOwnerAndName == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindByOwnerAndName(ctx, owner, name)
}

func (m *WorkloadStore) FindByID(ctx context.Context, appID string) (*domain.AppRecord, error) {
	m.Called.FindByID += 1
	if m.Impl.FindByID == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.FindByID(ctx, appID)
}

func (m *WorkloadStore) ListByOwner(ctx context.Context, owner string) ([]domain.AppRecord, error) {
	m.Called.ListByOwner += 1
	if m.Impl.ListByOwner == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ListByOwner(ctx, owner)
}

func (m *WorkloadStore) ListAll(ctx context.Context) ([]domain.AppRecord, error) {
	m.Called.ListAll += 1
	if m.Impl.ListAll == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ListAll(ctx)
}

func (m *WorkloadStore) Upsert(ctx context.Context, w apps.Workload) (domain.AppRecord, error) {
	m.Called.Upsert += 1
	if m.Impl.Upsert == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Upsert(ctx, w)
}

func (m *WorkloadStore) SetReplicas(ctx context.Context, owner string, name string, replicas int32) (domain.AppRecord, error) {
	m.Called.SetReplicas += 1
	if m.Impl.SetReplicas == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.SetReplicas(ctx, owner, name, replicas)
}

func (m *WorkloadStore) Delete(ctx context.Context, owner string, name string) error {
	m.Called.Delete += 1
	if m.Impl.Delete == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.Delete(ctx, owner, name)
}
