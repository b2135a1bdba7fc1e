package models

import (
	"time"
)

// Loan represents a disbursed loan. Principal and the tracking fields are in
// paise and are mutated only through committed transactions; Status is owned
// by the loan lifecycle state machine.
type Loan struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	Type          string    `gorm:"not null;index" json:"type"`
	TakerID       uint      `gorm:"not null;index" json:"taker_id"`
	DistributorID uint      `gorm:"not null;index" json:"distributor_id"`
	FromAccountID uint      `gorm:"not null;index" json:"from_account_id"`
	Status        string    `gorm:"default:active;not null;index" json:"status"`
	Principal     int64     `gorm:"not null" json:"principal"`
	Disbursed     int64     `gorm:"column:amount_disbursed;not null" json:"amount_disbursed"`
	DisbursedAt   time.Time `gorm:"not null" json:"disbursed_at"`

	// Interest loan fields
	InterestRateMonthly *float64   `json:"interest_rate_monthly"`
	InterestCycle       *string    `json:"interest_cycle"`
	RepaymentMode       *string    `json:"repayment_mode"`
	DueDayOfMonth       *int       `json:"due_day_of_month"`
	NextDueDate         *time.Time `gorm:"index" json:"next_due_date"`

	// Corporation loan fields
	CorporationPercent *float64 `json:"corporation_percent"`
	TermDays           *int     `json:"term_days"`
	WeeklyPlanAmount   *int64   `json:"weekly_plan_amount"`

	// Tracking fields (paise); caches recomputed transactionally with the
	// ledger write.
	PrincipalOutstanding   int64 `gorm:"default:0" json:"principal_outstanding"`
	InterestAccruedUnpaid  int64 `gorm:"default:0" json:"interest_accrued_unpaid"`
	TotalReceivedPrincipal int64 `gorm:"default:0" json:"total_received_principal"`
	TotalReceivedInterest  int64 `gorm:"default:0" json:"total_received_interest"`
	LateFeesAccrued        int64 `gorm:"default:0" json:"late_fees_accrued"`

	ClosedAt  *time.Time `json:"closed_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	Taker       Customer `gorm:"foreignKey:TakerID" json:"taker,omitempty"`
	Distributor User     `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`
	FromAccount Account  `gorm:"foreignKey:FromAccountID" json:"from_account,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan type constants
const (
	LoanTypeInterest    = "interest"
	LoanTypeCorporation = "corporation"
)

// Loan status constants
const (
	LoanStatusActive     = "active"
	LoanStatusClosed     = "closed"
	LoanStatusDefaulted  = "defaulted"
	LoanStatusWrittenOff = "written_off"
)

// Interest cycle constants
const (
	InterestCycleMonthly   = "monthly"
	InterestCycleQuarterly = "quarterly"
	InterestCycleYearly    = "yearly"
	InterestCycleOnClose   = "on_close"
)

// Repayment mode constants
const (
	RepaymentModeInterestOnly = "interest_only"
	RepaymentModeEMI          = "emi"
	RepaymentModeBullet       = "bullet"
)

// MayClose returns true if the loan can transition to closed. A loan with
// outstanding principal cannot be closed.
func (l *Loan) MayClose() bool {
	return l.Status == LoanStatusActive && l.PrincipalOutstanding == 0
}

// MayDefault returns true if the loan can be marked defaulted
func (l *Loan) MayDefault() bool {
	return l.Status == LoanStatusActive
}

// IsTerminal returns true if the loan is in a terminal status
func (l *Loan) IsTerminal() bool {
	return l.Status == LoanStatusClosed ||
		l.Status == LoanStatusDefaulted ||
		l.Status == LoanStatusWrittenOff
}

// ROI returns total interest-style return over the amount actually disbursed
func (l *Loan) ROI() float64 {
	if l.Disbursed <= 0 {
		return 0
	}
	received := float64(l.TotalReceivedInterest)
	if l.CorporationPercent != nil {
		received += *l.CorporationPercent * float64(l.Disbursed)
	}
	return received / float64(l.Disbursed)
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID                     uint       `json:"id"`
	Name                   string     `json:"name"`
	Type                   string     `json:"type"`
	TakerID                uint       `json:"taker_id"`
	TakerName              string     `json:"taker_name,omitempty"`
	DistributorID          uint       `json:"distributor_id"`
	FromAccountID          uint       `json:"from_account_id"`
	FromAccountName        string     `json:"from_account_name,omitempty"`
	Status                 string     `json:"status"`
	Principal              int64      `json:"principal"`
	Disbursed              int64      `json:"amount_disbursed"`
	DisbursedAt            time.Time  `json:"disbursed_at"`
	InterestRateMonthly    *float64   `json:"interest_rate_monthly"`
	InterestCycle          *string    `json:"interest_cycle"`
	NextDueDate            *time.Time `json:"next_due_date"`
	CorporationPercent     *float64   `json:"corporation_percent"`
	TermDays               *int       `json:"term_days"`
	PrincipalOutstanding   int64      `json:"principal_outstanding"`
	InterestAccruedUnpaid  int64      `json:"interest_accrued_unpaid"`
	TotalReceivedPrincipal int64      `json:"total_received_principal"`
	TotalReceivedInterest  int64      `json:"total_received_interest"`
	LateFeesAccrued        int64      `json:"late_fees_accrued"`
	ROI                    float64    `json:"roi"`
	ClosedAt               *time.Time `json:"closed_at"`
	CreatedAt              time.Time  `json:"created_at"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	resp := LoanResponse{
		ID:                     l.ID,
		Name:                   l.Name,
		Type:                   l.Type,
		TakerID:                l.TakerID,
		DistributorID:          l.DistributorID,
		FromAccountID:          l.FromAccountID,
		Status:                 l.Status,
		Principal:              l.Principal,
		Disbursed:              l.Disbursed,
		DisbursedAt:            l.DisbursedAt,
		InterestRateMonthly:    l.InterestRateMonthly,
		InterestCycle:          l.InterestCycle,
		NextDueDate:            l.NextDueDate,
		CorporationPercent:     l.CorporationPercent,
		TermDays:               l.TermDays,
		PrincipalOutstanding:   l.PrincipalOutstanding,
		InterestAccruedUnpaid:  l.InterestAccruedUnpaid,
		TotalReceivedPrincipal: l.TotalReceivedPrincipal,
		TotalReceivedInterest:  l.TotalReceivedInterest,
		LateFeesAccrued:        l.LateFeesAccrued,
		ROI:                    l.ROI(),
		ClosedAt:               l.ClosedAt,
		CreatedAt:              l.CreatedAt,
	}

	if l.Taker.ID != 0 {
		resp.TakerName = l.Taker.Name
	}
	if l.FromAccount.ID != 0 {
		resp.FromAccountName = l.FromAccount.Name
	}

	return resp
}
