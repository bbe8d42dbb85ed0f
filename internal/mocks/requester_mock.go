package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// MockRequester is a mock implementation of the transport Requester interface.
// The first return value, when not nil, is JSON-copied into result.
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Get(ctx context.Context, path string, result any) error {
	args := m.Called(ctx, path)
	return fill(args.Get(0), result, args.Error(1))
}

func (m *MockRequester) Post(ctx context.Context, path string, body any, result any) error {
	args := m.Called(ctx, path, body)
	return fill(args.Get(0), result, args.Error(1))
}

func fill(value, result any, err error) error {
	if err != nil || value == nil || result == nil {
		return err
	}
	data, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		return marshalErr
	}
	return json.Unmarshal(data, result)
}
