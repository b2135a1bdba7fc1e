package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paisabook/paisabook-api/internal/middleware"
	"github.com/paisabook/paisabook-api/internal/services"
)

type LoanHandler struct {
	loanService *services.LoanService
}

func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// @Summary Create Loan
// @Description Opens a loan and books its disbursement atomically
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body services.CreateLoanInput true "Loan"
// @Success 201 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	var in services.CreateLoanInput
	if err := BindNestedOrFlat(c, "loan", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Name == "" || in.TakerID == 0 || in.FromAccountID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, taker_id and from_account_id are required"})
		return
	}
	in.CreatedBy = middleware.GetUserID(c)
	if in.DistributorID == 0 {
		in.DistributorID = in.CreatedBy
	}

	loan, err := h.loanService.CreateLoan(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan": loan.ToResponse()})
}

// @Summary List Loans
// @Tags Loans
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param customer_id query int false "Filter by taker"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans [get]
func (h *LoanHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c, "status", "type", "customer_id")

	loans, total, err := h.loanService.ListLoans(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(loans))
	for i := range loans {
		responses = append(responses, loans[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans":      responses,
		"pagination": paginationMeta(query, total),
	})
}

// @Summary Get Loan
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id} [get]
func (h *LoanHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "loan_id")
	if !ok {
		return
	}

	loan, err := h.loanService.GetLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

type CollectRequest struct {
	CollectKind string `json:"collect_kind" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	AccountID   uint   `json:"account_id" binding:"required"`
	Remarks     string `json:"remarks"`
}

// @Summary Collect Repayment
// @Description Books a principal, interest, late fee or corporation repayment
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Param request body CollectRequest true "Collection"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/collect [post]
func (h *LoanHandler) Collect(c *gin.Context) {
	id, ok := parseID(c, "loan_id")
	if !ok {
		return
	}

	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.loanService.Collect(c.Request.Context(), id, req.CollectKind, req.Amount, req.AccountID, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}

// @Summary Close Loan
// @Description Closes a loan with zero outstanding principal
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/close [post]
func (h *LoanHandler) Close(c *gin.Context) {
	id, ok := parseID(c, "loan_id")
	if !ok {
		return
	}

	loan, err := h.loanService.CloseLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// @Summary Default Loan
// @Description Marks an active loan as defaulted
// @Tags Loans
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/default [post]
func (h *LoanHandler) Default(c *gin.Context) {
	id, ok := parseID(c, "loan_id")
	if !ok {
		return
	}

	loan, err := h.loanService.DefaultLoan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// @Summary Run Interest Accrual
// @Description Manually triggers the interest accrual sweep (admin only)
// @Tags Loans
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans/accrue [post]
func (h *LoanHandler) Accrue(c *gin.Context) {
	count, err := h.loanService.AccrueInterest(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accrued_loans": count})
}
