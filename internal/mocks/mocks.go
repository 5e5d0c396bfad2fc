package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"blur-chat/internal/models"
	"blur-chat/internal/storage"
)

type SnapshotStoreMock struct {
	mock.Mock
}

func (m *SnapshotStoreMock) Load(ctx context.Context) (models.Snapshot, error) {
	args := m.Called(ctx)
	var snap models.Snapshot
	if val := args.Get(0); val != nil {
		snap = val.(models.Snapshot)
	}
	return snap, args.Error(1)
}

func (m *SnapshotStoreMock) Save(ctx context.Context, snap models.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

var _ storage.SnapshotStore = (*SnapshotStoreMock)(nil)
