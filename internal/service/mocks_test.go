package service

import (
	"context"

	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func runnerIn(mode connectivity.Mode) *dualaccess.Runner {
	return dualaccess.NewRunner(dualaccess.StaticMode(mode), nil, zap.NewNop())
}

func withUser(id string, role domain.Role) context.Context {
	return domain.WithPrincipal(context.Background(), &domain.UserProfile{UserID: id, Role: role})
}

// MockInventoryRepository is a mock InventoryRepository.
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) ListSuppliers(ctx context.Context) ([]*domain.Supplier, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Supplier), args.Error(1)
}

func (m *MockInventoryRepository) ListItems(ctx context.Context, f repository.ItemFilters) ([]*domain.InventoryItem, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) CreateItem(ctx context.Context, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) UpdateItem(ctx context.Context, id string, patch domain.InventoryItemPatch) (*domain.InventoryItem, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}

func (m *MockInventoryRepository) SetItemActive(ctx context.Context, id string, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *MockInventoryRepository) CountMovements(ctx context.Context, itemID string) (int, error) {
	args := m.Called(ctx, itemID)
	return args.Int(0), args.Error(1)
}

func (m *MockInventoryRepository) CreateMovement(ctx context.Context, mv *domain.InventoryMovement) (*domain.InventoryMovement, error) {
	args := m.Called(ctx, mv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryMovement), args.Error(1)
}

func (m *MockInventoryRepository) ListMovements(ctx context.Context, itemID string, limit int) ([]*domain.InventoryMovement, error) {
	args := m.Called(ctx, itemID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InventoryMovement), args.Error(1)
}

func (m *MockInventoryRepository) ImportItems(ctx context.Context, items []*domain.InventoryItem) (int, error) {
	args := m.Called(ctx, items)
	return args.Int(0), args.Error(1)
}

// MockBillingRepository is a mock BillingRepository.
type MockBillingRepository struct {
	mock.Mock
}

func (m *MockBillingRepository) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockBillingRepository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockBillingRepository) ListInvoices(ctx context.Context, f repository.InvoiceFilters) ([]*domain.Invoice, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Invoice), args.Error(1)
}

func (m *MockBillingRepository) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockBillingRepository) ListPayments(ctx context.Context, f repository.PaymentFilters) ([]*domain.Payment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockBillingRepository) CreateCashClosure(ctx context.Context, c *domain.CashClosure) (*domain.CashClosure, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashClosure), args.Error(1)
}

func (m *MockBillingRepository) ListCashClosures(ctx context.Context, f repository.ClosureFilters) ([]*domain.CashClosure, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CashClosure), args.Error(1)
}

// MockSurgeryRepository is a mock SurgeryRepository.
type MockSurgeryRepository struct {
	mock.Mock
}

func (m *MockSurgeryRepository) ListSurgeries(ctx context.Context, f repository.SurgeryFilters) ([]*domain.Surgery, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Surgery), args.Error(1)
}

func (m *MockSurgeryRepository) GetSurgery(ctx context.Context, id string) (*domain.Surgery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Surgery), args.Error(1)
}

func (m *MockSurgeryRepository) CreateSurgery(ctx context.Context, s *domain.Surgery) (*domain.Surgery, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Surgery), args.Error(1)
}

func (m *MockSurgeryRepository) UpdateSurgeryStatus(ctx context.Context, id string, from, to domain.SurgeryStatus) (*domain.Surgery, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Surgery), args.Error(1)
}

// MockAnalyticsRepository is a mock AnalyticsRepository.
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) Dashboard(ctx context.Context, f repository.DashboardFilters) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}

// MockCRMRepository is a mock CRMRepository.
type MockCRMRepository struct {
	mock.Mock
}

func (m *MockCRMRepository) ListStages(ctx context.Context, pipeline string) ([]*domain.PipelineStage, error) {
	args := m.Called(ctx, pipeline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PipelineStage), args.Error(1)
}

func (m *MockCRMRepository) ListLeads(ctx context.Context, pipeline string) ([]*domain.Lead, error) {
	args := m.Called(ctx, pipeline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Lead), args.Error(1)
}

func (m *MockCRMRepository) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lead), args.Error(1)
}

func (m *MockCRMRepository) MoveLead(ctx context.Context, leadID, stageID string) (*domain.Lead, error) {
	args := m.Called(ctx, leadID, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lead), args.Error(1)
}

// MockAdminRepository is a mock AdminRepository.
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockAdminRepository) ListBranches(ctx context.Context) ([]*domain.Branch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Branch), args.Error(1)
}

func (m *MockAdminRepository) ListProfiles(ctx context.Context) ([]*domain.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserProfile), args.Error(1)
}

func (m *MockAdminRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}
