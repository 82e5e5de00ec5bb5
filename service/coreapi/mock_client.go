package coreapi

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of the DarajaApiClient interface.
type MockClient struct {
	mock.Mock
}

// GenerateAccessToken mocks the GenerateAccessToken method.
func (m *MockClient) GenerateAccessToken(ctx context.Context) (*AccessTokenResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccessTokenResponse), args.Error(1)
}

// InitiateSTKPush mocks the InitiateSTKPush method.
func (m *MockClient) InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	args := m.Called(ctx, phoneNumber, amount, accountReference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*STKPushResponse), args.Error(1)
}
