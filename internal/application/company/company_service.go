// Package company implements the retention agent use cases: registration,
// edits, logo upload and owner-scoped listing.
package company

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simatecve/reten-facil-sub000/internal/domain/billing"
	"github.com/simatecve/reten-facil-sub000/internal/domain/company"
	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// ObjectStorage is the slice of the storage collaborator this service needs:
// a named binary upload under an entity-scoped key, returning a public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// PlanGuard answers whether the owner's plan admits one more company
type PlanGuard interface {
	CurrentPlan(ctx context.Context, ownerID uuid.UUID) (*billing.Plan, error)
}

// Service handles company business operations
type Service struct {
	companyRepo company.Repository
	storage     ObjectStorage
	planGuard   PlanGuard
	logger      *zap.Logger
}

// NewService creates a new company service
func NewService(companyRepo company.Repository, storage ObjectStorage, planGuard PlanGuard, logger *zap.Logger) *Service {
	return &Service{
		companyRepo: companyRepo,
		storage:     storage,
		planGuard:   planGuard,
		logger:      logger,
	}
}

// CreateCompanyRequest carries the fields for registering a retention agent
type CreateCompanyRequest struct {
	Name          string `json:"name" binding:"required"`
	RIF           string `json:"rif" binding:"required,rif"`
	FiscalAddress string `json:"fiscal_address" binding:"required"`
	RetentionRate int    `json:"retention_rate" binding:"required,oneof=75 100"`
}

// UpdateCompanyRequest carries the editable company fields
type UpdateCompanyRequest struct {
	Name          string `json:"name" binding:"required"`
	RIF           string `json:"rif" binding:"required,rif"`
	FiscalAddress string `json:"fiscal_address" binding:"required"`
	RetentionRate int    `json:"retention_rate" binding:"required,oneof=75 100"`
}

// CompanyResponse is the API shape of a company
type CompanyResponse struct {
	ID                    uuid.UUID `json:"id"`
	Name                  string    `json:"name"`
	RIF                   string    `json:"rif"`
	FiscalAddress         string    `json:"fiscal_address"`
	RetentionRate         string    `json:"retention_rate"`
	LogoURL               string    `json:"logo_url,omitempty"`
	LastCorrelationNumber int64     `json:"last_correlation_number"`
}

func toResponse(c *company.Company) *CompanyResponse {
	return &CompanyResponse{
		ID:                    c.ID,
		Name:                  c.Name,
		RIF:                   c.RIF,
		FiscalAddress:         c.FiscalAddress,
		RetentionRate:         c.DefaultRetentionRate.StringFixed(0),
		LogoURL:               c.LogoURL,
		LastCorrelationNumber: c.LastCorrelationNumber,
	}
}

// Create registers a retention agent for the owner, enforcing the plan's
// company limit.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req CreateCompanyRequest) (*CompanyResponse, error) {
	plan, err := s.planGuard.CurrentPlan(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	current, err := s.companyRepo.CountForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !plan.AllowsCompanies(current) {
		return nil, shared.ErrPlanLimitReached
	}

	rif, err := company.NormalizeRIF(req.RIF)
	if err != nil {
		return nil, err
	}
	exists, err := s.companyRepo.ExistsByRIFForOwner(ctx, ownerID, rif)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A company with this RIF is already registered")
	}

	c, err := company.NewCompany(ownerID, req.Name, req.RIF, req.FiscalAddress,
		decimal.NewFromInt(int64(req.RetentionRate)))
	if err != nil {
		return nil, err
	}
	if err := s.companyRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("company registered",
		zap.String("company_id", c.ID.String()),
		zap.String("rif", c.RIF))
	return toResponse(c), nil
}

// Update edits a company's fields. The correlation counter is untouchable
// from this path.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateCompanyRequest) (*CompanyResponse, error) {
	c, err := s.companyRepo.FindByIDForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := c.Update(req.Name, req.RIF, req.FiscalAddress,
		decimal.NewFromInt(int64(req.RetentionRate))); err != nil {
		return nil, err
	}
	if err := s.companyRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

// Get returns one company of the owner
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*CompanyResponse, error) {
	c, err := s.companyRepo.FindByIDForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(c), nil
}

// List returns all companies of the owner
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]CompanyResponse, error) {
	companies, err := s.companyRepo.FindAllForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, *toResponse(&companies[i]))
	}
	return out, nil
}

// Delete removes a company
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.companyRepo.Delete(ctx, ownerID, id)
}

var allowedLogoTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadLogo stores the company logo and records its public URL
func (s *Service) UploadLogo(ctx context.Context, ownerID, id uuid.UUID, filename, contentType string, body io.Reader) (*CompanyResponse, error) {
	c, err := s.companyRepo.FindByIDForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	ext, ok := allowedLogoTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", "Logo must be a PNG, JPEG or WebP image")
	}
	if e := strings.ToLower(path.Ext(filename)); e != "" && e != ext && !(e == ".jpeg" && ext == ".jpg") {
		s.logger.Debug("logo extension does not match content type",
			zap.String("filename", filename), zap.String("content_type", contentType))
	}

	key := fmt.Sprintf("logos/%s/logo%s", c.ID, ext)
	url, err := s.storage.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, err
	}

	c.SetLogoURL(url)
	if err := s.companyRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return toResponse(c), nil
}
