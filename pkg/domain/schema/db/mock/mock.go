package mock

import (
	"context"
	"errors"

	"github.com/1800agents/saki/pkg/domain/schema"
)

type Provisioner struct {
	Impl struct {
		EnsureSchema func(ctx context.Context, appID string) error
		DropSchema   func(ctx context.Context, appID string) error
	}
	Called struct {
		EnsureSchema uint64
		DropSchema   uint64
	}
}

var _ schema.Provisioner = &Provisioner{}

func New() *Provisioner {
	return &Provisioner{}
}

func (m *Provisioner) EnsureSchema(ctx context.Context, appID string) error {
	m.Called.EnsureSchema += 1
	if m.Impl.EnsureSchema == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.EnsureSchema(ctx, appID)
}

func (m *Provisioner) DropSchema(ctx context.Context, appID string) error {
	m.Called.DropSchema += 1
	if m.Impl.DropSchema == nil {
		return errors.New("[MOCK] not implemented")
	}
	return m.Impl.DropSchema(ctx, appID)
}
