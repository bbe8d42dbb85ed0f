package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/fbx-agent/pkg/credentials"
)

// MockCredentialStore is a mock implementation of the CredentialStoreInterface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Load() (*credentials.PersistedAuth, bool) {
	args := m.Called()
	auth, _ := args.Get(0).(*credentials.PersistedAuth)
	return auth, args.Bool(1)
}

func (m *MockCredentialStore) Save(auth credentials.PersistedAuth) error {
	args := m.Called(auth)
	return args.Error(0)
}

func (m *MockCredentialStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}
