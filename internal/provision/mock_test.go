package provision

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/marit/provisioner/internal/model"
	"github.com/marit/provisioner/internal/tenantapp"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) CreateSite(ctx context.Context, tenantHost, companyName string) (string, error) {
	args := m.Called(ctx, tenantHost, companyName)
	return args.String(0), args.Error(1)
}

func (m *mockBuilder) JobStatus(ctx context.Context, jobID string) (model.ExternalStatus, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(model.ExternalStatus), args.Error(1)
}

func (m *mockBuilder) DeleteSite(ctx context.Context, tenantHost string) error {
	args := m.Called(ctx, tenantHost)
	return args.Error(0)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) CreateOrganization(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organization), args.Error(1)
}

func (m *mockRegistry) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Organization), args.Error(1)
}

func (m *mockRegistry) ListOrganizationsByPrefix(ctx context.Context, prefix string) ([]model.Organization, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Organization), args.Error(1)
}

func (m *mockRegistry) DeleteOrganization(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRegistry) AddMember(ctx context.Context, orgID, userID string) error {
	args := m.Called(ctx, orgID, userID)
	return args.Error(0)
}

func (m *mockRegistry) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockRegistry) SetUserAttribute(ctx context.Context, userID, key string, values []string) error {
	args := m.Called(ctx, userID, key, values)
	return args.Error(0)
}

func (m *mockRegistry) DeleteUserAttribute(ctx context.Context, userID, key string) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

func (m *mockRegistry) FindClientApp(ctx context.Context, name string) (*model.ClientApp, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ClientApp), args.Error(1)
}

func (m *mockRegistry) DeleteClientApp(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAppUsers struct {
	mock.Mock
}

func (m *mockAppUsers) CreateDefaultUser(ctx context.Context, tenantHost string, req tenantapp.CreateUserRequest) error {
	args := m.Called(ctx, tenantHost, req)
	return args.Error(0)
}

type mockContainers struct {
	mock.Mock
}

func (m *mockContainers) CreateContainer(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
