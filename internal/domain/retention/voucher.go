package retention

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// AgentSnapshot is the retention agent (company) data frozen into a voucher
// at issue time. Later company edits must not rewrite issued vouchers.
type AgentSnapshot struct {
	Name          string          `json:"name"`
	RIF           string          `json:"rif"`
	FiscalAddress string          `json:"fiscal_address"`
	RetentionRate decimal.Decimal `json:"retention_rate"`
	LogoURL       string          `json:"logo_url,omitempty"`
}

// SubjectSnapshot is the retained subject (supplier). Suppliers are not an
// independent persisted entity; they live only inside vouchers.
type SubjectSnapshot struct {
	Name string `json:"name"`
	RIF  string `json:"rif"`
}

// ItemList is an ordered slice of invoice items persisted as a JSON column.
type ItemList []InvoiceItem

// Value implements driver.Valuer for GORM JSON storage
func (l ItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for GORM JSON storage
func (l *ItemList) Scan(value interface{}) error {
	if value == nil {
		*l = ItemList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for ItemList")
	}
	return json.Unmarshal(data, l)
}

// RetentionVoucher is the legal IVA withholding voucher issued by a retention
// agent for one supplier and one fiscal period. The voucher number and issue
// date are fixed at creation; edits only replace item contents and totals.
type RetentionVoucher struct {
	shared.OwnedAggregateRoot
	CompanyID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_voucher_company_number,priority:1"`
	VoucherNumber string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_voucher_company_number,priority:2"`
	Correlation   int64           `gorm:"not null"`
	IssuedAt      time.Time       `gorm:"not null"`
	FiscalYear    int             `gorm:"not null;index:idx_voucher_period"`
	FiscalMonth   int             `gorm:"not null;index:idx_voucher_period"`
	FiscalPeriod  string          `gorm:"type:varchar(30);not null"`
	Agent         AgentSnapshot   `gorm:"embedded;embeddedPrefix:agent_"`
	Subject       SubjectSnapshot `gorm:"embedded;embeddedPrefix:subject_"`
	Items         ItemList        `gorm:"type:jsonb;not null"`
	TotalPurchase decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalTax      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalRetained decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (RetentionVoucher) TableName() string {
	return "retention_vouchers"
}

// NewRetentionVoucher issues a voucher for the given correlation number.
// The caller (repository) is responsible for allocating the correlation
// atomically against the company counter.
func NewRetentionVoucher(
	ownerID uuid.UUID,
	companyID uuid.UUID,
	agent AgentSnapshot,
	subject SubjectSnapshot,
	correlation int64,
	issuedAt time.Time,
	items []InvoiceItem,
) (*RetentionVoucher, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if agent.Name == "" || agent.RIF == "" {
		return nil, shared.NewDomainError("INVALID_AGENT", "Agent name and RIF are required")
	}
	if subject.Name == "" || subject.RIF == "" {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject name and RIF are required")
	}
	if correlation < 1 {
		return nil, shared.NewDomainError("INVALID_CORRELATION", "Correlation number must be positive")
	}
	if issuedAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_VOUCHER", "A voucher requires at least one invoice item")
	}

	v := &RetentionVoucher{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		CompanyID:          companyID,
		VoucherNumber:      FormatVoucherNumber(issuedAt, correlation),
		Correlation:        correlation,
		IssuedAt:           issuedAt,
		FiscalYear:         issuedAt.Year(),
		FiscalMonth:        int(issuedAt.Month()),
		FiscalPeriod:       FiscalPeriodLabel(issuedAt),
		Agent:              agent,
		Subject:            subject,
		Items:              ItemList(items),
	}
	v.recomputeTotals()

	v.AddDomainEvent(NewVoucherIssuedEvent(v))
	return v, nil
}

// ReplaceItems swaps the voucher's invoice lines and recomputes totals.
// The voucher number and issue date are never touched by an edit.
func (v *RetentionVoucher) ReplaceItems(items []InvoiceItem) error {
	if len(items) == 0 {
		return shared.NewDomainError("EMPTY_VOUCHER", "A voucher requires at least one invoice item")
	}
	v.Items = ItemList(items)
	v.recomputeTotals()
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
	v.AddDomainEvent(NewVoucherItemsReplacedEvent(v))
	return nil
}

// UpdateSubject corrects the supplier snapshot of an issued voucher.
func (v *RetentionVoucher) UpdateSubject(subject SubjectSnapshot) error {
	if subject.Name == "" || subject.RIF == "" {
		return shared.NewDomainError("INVALID_SUBJECT", "Subject name and RIF are required")
	}
	v.Subject = subject
	v.UpdatedAt = time.Now()
	v.IncrementVersion()
	return nil
}

func (v *RetentionVoucher) recomputeTotals() {
	purchase := decimal.Zero
	tax := decimal.Zero
	retained := decimal.Zero
	for _, item := range v.Items {
		purchase = purchase.Add(item.TotalAmount)
		tax = tax.Add(item.TaxAmount)
		retained = retained.Add(item.RetainedAmount)
	}
	v.TotalPurchase = purchase.Round(StoragePrecision)
	v.TotalTax = tax.Round(StoragePrecision)
	v.TotalRetained = retained.Round(StoragePrecision)
}
