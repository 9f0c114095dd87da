package mock

import (
	"context"
	"errors"

	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps/service"
	"github.com/1800agents/saki/pkg/domain/auth"
)

type Service struct {
	Impl struct {
		PreparePush func(ctx context.Context, who auth.Identity, name string, gitCommit string) (domain.PushGrant, error)
		UpsertApp   func(ctx context.Context, who auth.Identity, spec service.AppSpec) (domain.AppRecord, error)
		ListApps    func(ctx context.Context, who auth.Identity, all bool) ([]domain.AppRecord, error)
		GetApp      func(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)
		StopApp     func(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)
		StartApp    func(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error)
		DeleteApp   func(ctx context.Context, who auth.Identity, name string) error
		Logs        func(ctx context.Context, who auth.Identity, name string, cursor string, limit int) (domain.LogPage, error)
	}
	Called struct {
		PreparePush uint64
		UpsertApp   uint64
		ListApps    uint64
		GetApp      uint64
		StopApp     uint64
		StartApp    uint64
		DeleteApp   uint64
		Logs        uint64
	}
}

var _ service.Service = &Service{}

func New() *Service {
	return &Service{}
}

func (m *Service) PreparePush(ctx context.Context, who auth.Identity, name string, gitCommit string) (domain.PushGrant, error) {
	m.Called.PreparePush += 1
	if m.Impl.PreparePush == nil {
		return domain.PushGrant{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.PreparePush(ctx, who, name, gitCommit)
}

func (m *Service) UpsertApp(ctx context.Context, who auth.Identity, spec service.AppSpec) (domain.AppRecord, error) {
	m.Called.UpsertApp += 1
	if m.Impl.UpsertApp == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.UpsertApp(ctx, who, spec)
}

func (m *Service) ListApps(ctx context.Context, who auth.Identity, all bool) ([]domain.AppRecord, error) {
	m.Called.ListApps += 1
	if m.Impl.ListApps == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.ListApps(ctx, who, all)
}

func (m *Service) GetApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	m.Called.GetApp += 1
	if m.Impl.GetApp == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.GetApp(ctx, who, name)
}

func (m *Service) StopApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	m.Called.StopApp += 1
	if m.Impl.StopApp == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.StopApp(ctx, who, name)
}

func (m *Service) StartApp(ctx context.Context, who auth.Identity, name string) (domain.AppRecord, error) {
	m.Called.StartApp += 1
	if m.Impl.StartApp == nil {
		return domain.AppRecord{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.StartApp(ctx, who, name)
}

func (m *Service) DeleteApp(ctx context.Context, who auth.Identity, name string) error {
	m.Called.DeleteApp += 1
	if m.Impl.DeleteApp == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DeleteApp(ctx, who, name)
}

func (m *Service) Logs(ctx context.Context, who auth.Identity, name string, cursor string, limit int) (domain.LogPage, error) {
	m.Called.Logs += 1
	if m.Impl.Logs == nil {
		return domain.LogPage{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Logs(ctx, who, name, cursor, limit)
}
