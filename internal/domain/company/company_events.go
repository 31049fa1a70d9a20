package company

import (
	"github.com/google/uuid"

	"github.com/simatecve/reten-facil-sub000/internal/domain/shared"
)

// CompanyRegisteredEvent is raised when a retention agent is registered
type CompanyRegisteredEvent struct {
	shared.BaseDomainEvent
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	RIF       string    `json:"rif"`
	OwnerID   uuid.UUID `json:"owner_id"`
}

// EventType returns the event type name
func (e *CompanyRegisteredEvent) EventType() string {
	return "CompanyRegistered"
}

// NewCompanyRegisteredEvent creates a new CompanyRegisteredEvent
func NewCompanyRegisteredEvent(c *Company) *CompanyRegisteredEvent {
	return &CompanyRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("CompanyRegistered", "Company", c.ID),
		CompanyID:       c.ID,
		Name:            c.Name,
		RIF:             c.RIF,
		OwnerID:         c.OwnerID,
	}
}
