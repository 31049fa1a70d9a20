package retention

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/retention"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// ============================================================================
// Mocks
// ============================================================================

// MockVoucherRepository is a mock implementation of VoucherRepository
type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) CreateWithSequence(ctx context.Context, companyID uuid.UUID, build retention.VoucherFactory) (*retention.RetentionVoucher, error) {
	args := m.Called(ctx, companyID, build)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retention.RetentionVoucher), args.Error(1)
}

func (m *MockVoucherRepository) Update(ctx context.Context, voucher *retention.RetentionVoucher) error {
	args := m.Called(ctx, voucher)
	return args.Error(0)
}

func (m *MockVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*retention.RetentionVoucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retention.RetentionVoucher), args.Error(1)
}

func (m *MockVoucherRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*retention.RetentionVoucher, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retention.RetentionVoucher), args.Error(1)
}

func (m *MockVoucherRepository) FindAllForOwner(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) ([]retention.RetentionVoucher, int64, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]retention.RetentionVoucher), args.Get(1).(int64), args.Error(2)
}

func (m *MockVoucherRepository) FindAllForCompany(ctx context.Context, ownerID, companyID uuid.UUID, filter shared.Filter) ([]retention.RetentionVoucher, int64, error) {
	args := m.Called(ctx, ownerID, companyID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]retention.RetentionVoucher), args.Get(1).(int64), args.Error(2)
}

func (m *MockVoucherRepository) CountForOwnerSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoucherRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

var _ retention.VoucherRepository = (*MockVoucherRepository)(nil)

// MockDraftRepository is a mock implementation of DraftRepository
type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Save(ctx context.Context, draft *retention.VoucherDraft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *MockDraftRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*retention.VoucherDraft, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retention.VoucherDraft), args.Error(1)
}

func (m *MockDraftRepository) FindOpenForOwner(ctx context.Context, ownerID uuid.UUID) ([]retention.VoucherDraft, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retention.VoucherDraft), args.Error(1)
}

func (m *MockDraftRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

var _ retention.DraftRepository = (*MockDraftRepository)(nil)

// MockCompanyRepository is a mock implementation of company.Repository
type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Save(ctx context.Context, c *company.Company) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*company.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindByIDForOwner(ctx context.Context, ownerID, id uuid.UUID) (*company.Company, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindAllForOwner(ctx context.Context, ownerID uuid.UUID) ([]company.Company, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]company.Company), args.Error(1)
}

func (m *MockCompanyRepository) CountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCompanyRepository) ExistsByRIFForOwner(ctx context.Context, ownerID uuid.UUID, rif string) (bool, error) {
	args := m.Called(ctx, ownerID, rif)
	return args.Bool(0), args.Error(1)
}

func (m *MockCompanyRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

var _ company.Repository = (*MockCompanyRepository)(nil)

// MockPlanGuard is a mock implementation of PlanGuard
type MockPlanGuard struct {
	mock.Mock
}

func (m *MockPlanGuard) CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

var _ PlanGuard = (*MockPlanGuard)(nil)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestOwnerID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func createTestPlan(maxMonthly int) *billing.Plan {
	plan, _ := billing.NewPlan("Profesional", "", decimal.NewFromInt(10),
		billing.PlanFeatures{AIExtraction: true, ChatAssistant: true},
		billing.PlanLimits{MaxVouchersMonthly: maxMonthly})
	return plan
}

func createTestCompany(ownerID uuid.UUID) *company.Company {
	c, _ := company.NewCompany(ownerID, "Inversiones Anzoátegui C.A.", "J-12345678-9",
		"Av. Intercomunal, Barcelona", decimal.NewFromInt(75))
	return c
}

func testItemRequest() ItemRequest {
	return ItemRequest{
		InvoiceDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		InvoiceNumber: "FA-00231",
		ControlNumber: "00-00231",
		Type:          string(retention.TransactionRegistration),
		TotalAmount:   decimal.RequireFromString("116.00"),
		TaxRate:       decimal.NewFromInt(16),
	}
}

func readyDraft(ownerID uuid.UUID, companyID uuid.UUID) *retention.VoucherDraft {
	draft := retention.NewVoucherDraft(ownerID)
	_ = draft.SelectCompany(companyID, decimal.NewFromInt(75))
	_ = draft.SetSubject(retention.SubjectSnapshot{Name: "Distribuidora Oriente C.A.", RIF: "J-98765432-1"})
	item, _ := retention.NewInvoiceItem(testItemRequest().toInput(decimal.NewFromInt(75)))
	_ = draft.AddItem(*item)
	return draft
}

func newTestVoucherService() (*VoucherService, *MockVoucherRepository, *MockDraftRepository, *MockCompanyRepository, *MockPlanGuard) {
	voucherRepo := new(MockVoucherRepository)
	draftRepo := new(MockDraftRepository)
	companyRepo := new(MockCompanyRepository)
	planGuard := new(MockPlanGuard)
	service := NewVoucherService(voucherRepo, draftRepo, companyRepo, planGuard, zap.NewNop())
	return service, voucherRepo, draftRepo, companyRepo, planGuard
}

// ============================================================================
// Wizard Tests
// ============================================================================

func TestVoucherService_StartDraft_Success(t *testing.T) {
	service, _, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()

	draftRepo.On("Save", ctx, mock.AnythingOfType("*retention.VoucherDraft")).Return(nil)

	resp, err := service.StartDraft(ctx, ownerID)

	require.NoError(t, err)
	assert.Equal(t, string(retention.DraftStateCompanySelection), resp.State)
	assert.False(t, resp.Editing)
	draftRepo.AssertExpectations(t)
}

func TestVoucherService_SelectCompany_SeedsRetentionRate(t *testing.T) {
	service, _, draftRepo, companyRepo, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	draft := retention.NewVoucherDraft(ownerID)
	c := createTestCompany(ownerID)

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)
	companyRepo.On("FindByIDForOwner", ctx, ownerID, c.ID).Return(c, nil)
	draftRepo.On("Save", ctx, draft).Return(nil)

	resp, err := service.SelectCompany(ctx, ownerID, draft.ID, c.ID)

	require.NoError(t, err)
	assert.Equal(t, string(retention.DraftStateSupplierInfo), resp.State)
	assert.True(t, resp.RetentionRate.Equal(decimal.NewFromInt(75)))
}

func TestVoucherService_SetSupplier_RejectsMalformedRIF(t *testing.T) {
	service, _, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	draft := retention.NewVoucherDraft(ownerID)
	_ = draft.SelectCompany(uuid.New(), decimal.NewFromInt(75))

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)

	_, err := service.SetSupplier(ctx, ownerID, draft.ID, SupplierRequest{
		Name: "Distribuidora Oriente C.A.",
		RIF:  "not-a-rif",
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_RIF", domainErr.Code)
}

func TestVoucherService_AddItem_MissingControlNumberIsRejected(t *testing.T) {
	service, _, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	draft := retention.NewVoucherDraft(ownerID)
	_ = draft.SelectCompany(uuid.New(), decimal.NewFromInt(75))
	_ = draft.SetSubject(retention.SubjectSnapshot{Name: "Proveedor", RIF: "J-11111111-1"})

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)

	req := testItemRequest()
	req.ControlNumber = ""
	_, err := service.AddItem(ctx, ownerID, draft.ID, req)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CONTROL_NUMBER", domainErr.Code)
	assert.Empty(t, draft.Items)
}

func TestVoucherService_AddItem_DefaultsRetentionRateFromDraft(t *testing.T) {
	service, _, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	draft := retention.NewVoucherDraft(ownerID)
	_ = draft.SelectCompany(uuid.New(), decimal.NewFromInt(100))
	_ = draft.SetSubject(retention.SubjectSnapshot{Name: "Proveedor", RIF: "J-11111111-1"})

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)
	draftRepo.On("Save", ctx, draft).Return(nil)

	resp, err := service.AddItem(ctx, ownerID, draft.ID, testItemRequest())

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].RetentionRate.Equal(decimal.NewFromInt(100)))
	assert.True(t, resp.Items[0].RetainedAmount.Equal(decimal.RequireFromString("16.00")))
}

// ============================================================================
// Generate Tests
// ============================================================================

func TestVoucherService_Generate_IssuesVoucherWithAllocatedNumber(t *testing.T) {
	service, voucherRepo, draftRepo, companyRepo, planGuard := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	c := createTestCompany(ownerID)
	draft := readyDraft(ownerID, c.ID)
	issuedAt := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return issuedAt })

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)
	planGuard.On("CurrentPlan", ctx, ownerID).Return(createTestPlan(0), nil)
	voucherRepo.On("CountForOwnerSince", ctx, ownerID,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)).Return(int64(3), nil)
	companyRepo.On("FindByIDForOwner", ctx, ownerID, c.ID).Return(c, nil)
	// Run the factory with correlation 146, the way the real repository
	// does inside its allocation transaction.
	call := voucherRepo.On("CreateWithSequence", ctx, c.ID, mock.AnythingOfType("retention.VoucherFactory"))
	call.Run(func(args mock.Arguments) {
		build := args.Get(2).(retention.VoucherFactory)
		v, err := build(146)
		call.ReturnArguments = mock.Arguments{v, err}
	})
	draftRepo.On("Save", ctx, draft).Return(nil)

	resp, err := service.Generate(ctx, ownerID, draft.ID)

	require.NoError(t, err)
	assert.Equal(t, "20250300000146", resp.VoucherNumber)
	assert.Equal(t, "Marzo 2025", resp.FiscalPeriod)
	assert.Equal(t, issuedAt, resp.IssuedAt)
	assert.Equal(t, string(retention.DraftStateGenerated), string(draft.State))
	voucherRepo.AssertExpectations(t)
}

func TestVoucherService_Generate_PlanLimitReached(t *testing.T) {
	service, voucherRepo, draftRepo, _, planGuard := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	c := createTestCompany(ownerID)
	draft := readyDraft(ownerID, c.ID)

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)
	planGuard.On("CurrentPlan", ctx, ownerID).Return(createTestPlan(5), nil)
	voucherRepo.On("CountForOwnerSince", ctx, ownerID, mock.AnythingOfType("time.Time")).
		Return(int64(5), nil)

	_, err := service.Generate(ctx, ownerID, draft.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrPlanLimitReached)
	voucherRepo.AssertNotCalled(t, "CreateWithSequence", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoucherService_Generate_RejectsEmptyDraft(t *testing.T) {
	service, _, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	draft := retention.NewVoucherDraft(ownerID)

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)

	_, err := service.Generate(ctx, ownerID, draft.ID)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_WIZARD_STATE", domainErr.Code)
}

// ============================================================================
// Edit Tests
// ============================================================================

func issueVoucherForEdit(t *testing.T, ownerID uuid.UUID, c *company.Company) *retention.RetentionVoucher {
	t.Helper()
	item, err := retention.NewInvoiceItem(testItemRequest().toInput(decimal.NewFromInt(75)))
	require.NoError(t, err)
	agent := retention.AgentSnapshot{
		Name: c.Name, RIF: c.RIF, FiscalAddress: c.FiscalAddress,
		RetentionRate: decimal.NewFromInt(75),
	}
	subject := retention.SubjectSnapshot{Name: "Distribuidora Oriente C.A.", RIF: "J-98765432-1"}
	v, err := retention.NewRetentionVoucher(ownerID, c.ID, agent, subject, 146,
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), []retention.InvoiceItem{*item})
	require.NoError(t, err)
	return v
}

func TestVoucherService_Generate_EditKeepsNumberAndDate(t *testing.T) {
	service, voucherRepo, draftRepo, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	c := createTestCompany(ownerID)
	voucher := issueVoucherForEdit(t, ownerID, c)
	originalNumber := voucher.VoucherNumber
	originalDate := voucher.IssuedAt

	draft := retention.NewEditDraft(ownerID, voucher)
	req := testItemRequest()
	req.InvoiceNumber = "FA-00232"
	req.TotalAmount = decimal.RequireFromString("232.00")
	item, err := retention.NewInvoiceItem(req.toInput(decimal.NewFromInt(75)))
	require.NoError(t, err)
	require.NoError(t, draft.AddItem(*item))

	draftRepo.On("FindByIDForOwner", ctx, ownerID, draft.ID).Return(draft, nil)
	voucherRepo.On("FindByIDForOwner", ctx, ownerID, voucher.ID).Return(voucher, nil)
	voucherRepo.On("Update", ctx, voucher).Return(nil)
	draftRepo.On("Save", ctx, draft).Return(nil)

	resp, err := service.Generate(ctx, ownerID, draft.ID)

	require.NoError(t, err)
	assert.Equal(t, originalNumber, resp.VoucherNumber)
	assert.Equal(t, originalDate, resp.IssuedAt)
	assert.Len(t, resp.Items, 2)
	voucherRepo.AssertNotCalled(t, "CreateWithSequence", mock.Anything, mock.Anything, mock.Anything)
	voucherRepo.AssertNotCalled(t, "CountForOwnerSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestVoucherService_UpdateItems_RecomputesTotals(t *testing.T) {
	service, voucherRepo, _, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	c := createTestCompany(ownerID)
	voucher := issueVoucherForEdit(t, ownerID, c)
	originalNumber := voucher.VoucherNumber

	voucherRepo.On("FindByIDForOwner", ctx, ownerID, voucher.ID).Return(voucher, nil)
	voucherRepo.On("Update", ctx, voucher).Return(nil)

	req := testItemRequest()
	req.TotalAmount = decimal.RequireFromString("232.00")
	resp, err := service.UpdateItems(ctx, ownerID, voucher.ID, []ItemRequest{req})

	require.NoError(t, err)
	assert.Equal(t, originalNumber, resp.VoucherNumber)
	assert.True(t, resp.TotalPurchase.Equal(decimal.RequireFromString("232.00")))
	assert.True(t, resp.TotalTax.Equal(decimal.RequireFromString("32.00")))
	assert.True(t, resp.TotalRetained.Equal(decimal.RequireFromString("24.00")))
}

func TestVoucherService_UpdateItems_InvalidLineLeavesVoucherUntouched(t *testing.T) {
	service, voucherRepo, _, _, _ := newTestVoucherService()
	ctx := context.Background()
	ownerID := newTestOwnerID()
	c := createTestCompany(ownerID)
	voucher := issueVoucherForEdit(t, ownerID, c)

	voucherRepo.On("FindByIDForOwner", ctx, ownerID, voucher.ID).Return(voucher, nil)

	req := testItemRequest()
	req.InvoiceNumber = ""
	_, err := service.UpdateItems(ctx, ownerID, voucher.ID, []ItemRequest{req})

	require.Error(t, err)
	assert.Len(t, voucher.Items, 1)
	voucherRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
