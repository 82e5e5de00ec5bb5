package coreapi

import "context"

type DarajaApiClient interface {
	GenerateAccessToken(ctx context.Context) (*AccessTokenResponse, error)
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*STKPushResponse, error)
}
