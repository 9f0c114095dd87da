package mock

import (
	"context"
	"errors"

	"github.com/1800agents/saki/pkg/domain"
	"github.com/1800agents/saki/pkg/domain/apps/logs"
)

type Reader struct {
	Impl struct {
		Read func(ctx context.Context, appID string, cursor string, limit int) (domain.LogPage, error)
	}
	Called struct {
		Read uint64
	}
}

var _ logs.Reader = &Reader{}

func New() *Reader {
	return &Reader{}
}

func (m *Reader) Read(ctx context.Context, appID string, cursor string, limit int) (domain.LogPage, error) {
	m.Called.Read += 1
	if m.Impl.Read == nil {
		return domain.LogPage{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.Read(ctx, appID, cursor, limit)
}
