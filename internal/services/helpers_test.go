package service_test

import (
	"context"

	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/pkg/sendgrid"
	stripeClient "github.com/jerseyshop/storefront-api/pkg/stripe"
	sendgridSDK "github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/mock"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, params stripeClient.CreateIntentParams) (*stripeClient.PaymentIntent, error) {
	args := m.Called(ctx, params)
	intent, _ := args.Get(0).(*stripeClient.PaymentIntent)

	return intent, args.Error(1)
}

func (m *mockGateway) GetPaymentIntent(ctx context.Context, id string) (*stripeClient.PaymentIntent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*stripeClient.PaymentIntent)

	return intent, args.Error(1)
}

func (m *mockGateway) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockEmailService) GetSendGridClient() *sendgridSDK.Client {
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

var (
	_ stripeClient.Client   = (*mockGateway)(nil)
	_ sendgrid.EmailService = (*mockEmailService)(nil)
)
