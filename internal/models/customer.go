package models

import (
	"time"
)

// Customer represents a borrower. The corporation-tracking fields are caches
// over corporation-type transactions and are mutated only by the transaction
// engine.
type Customer struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"not null;index" json:"name"`
	Phone     string  `gorm:"not null;index" json:"phone"`
	Email     *string `gorm:"index" json:"email"`
	Address   *string `json:"address"`
	Notes     *string `gorm:"type:text" json:"notes"`
	CreatedBy uint    `gorm:"not null;index" json:"created_by"`

	// Corporation tracking (paise)
	CorporationReceivable    int64 `gorm:"default:0" json:"corporation_receivable"`
	TotalCorporationGiven    int64 `gorm:"default:0" json:"total_corporation_given"`
	TotalCorporationReceived int64 `gorm:"default:0" json:"total_corporation_received"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Creator User   `gorm:"foreignKey:CreatedBy" json:"-"`
	Loans   []Loan `gorm:"foreignKey:TakerID" json:"loans,omitempty"`
}

// TableName specifies the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// CustomerResponse is the JSON response format for customers
type CustomerResponse struct {
	ID                       uint      `json:"id"`
	Name                     string    `json:"name"`
	Phone                    string    `json:"phone"`
	Email                    *string   `json:"email"`
	Address                  *string   `json:"address"`
	Notes                    *string   `json:"notes"`
	CorporationReceivable    int64     `json:"corporation_receivable"`
	TotalCorporationGiven    int64     `json:"total_corporation_given"`
	TotalCorporationReceived int64     `json:"total_corporation_received"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// ToResponse converts Customer to CustomerResponse
func (c *Customer) ToResponse() CustomerResponse {
	return CustomerResponse{
		ID:                       c.ID,
		Name:                     c.Name,
		Phone:                    c.Phone,
		Email:                    c.Email,
		Address:                  c.Address,
		Notes:                    c.Notes,
		CorporationReceivable:    c.CorporationReceivable,
		TotalCorporationGiven:    c.TotalCorporationGiven,
		TotalCorporationReceived: c.TotalCorporationReceived,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

// CustomerSummary aggregates a customer's position across all loans.
type CustomerSummary struct {
	TotalPrincipalOutstanding int64   `json:"total_principal_outstanding"`
	TotalInterestDue          int64   `json:"total_interest_due"`
	TotalOverdue              int64   `json:"total_overdue"`
	TotalAmountDisbursed      int64   `json:"total_amount_disbursed"`
	TotalReceivedInterest     int64   `json:"total_received_interest"`
	ROI                       float64 `json:"roi"`
}
