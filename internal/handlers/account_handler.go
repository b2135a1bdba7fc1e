package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paisabook/paisabook-api/internal/middleware"
	"github.com/paisabook/paisabook-api/internal/services"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// @Summary Create Account
// @Description Opens a cash or bank account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body services.CreateAccountInput true "Account"
// @Success 201 {object} models.AccountResponse
// @Security BearerAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var in services.CreateAccountInput
	if err := BindNestedOrFlat(c, "account", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account.ToResponse()})
}

// @Summary List Accounts
// @Tags Accounts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /accounts [get]
func (h *AccountHandler) Index(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, accounts[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"accounts": responses})
}

// @Summary Get Account
// @Tags Accounts
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} models.AccountResponse
// @Security BearerAuth
// @Router /accounts/{account_id} [get]
func (h *AccountHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account.ToResponse()})
}

// @Summary Update Account
// @Description Renames an account; balances are not updatable
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body services.UpdateAccountInput true "Account"
// @Success 200 {object} models.AccountResponse
// @Security BearerAuth
// @Router /accounts/{account_id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	var in services.UpdateAccountInput
	if err := BindNestedOrFlat(c, "account", &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account.ToResponse()})
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// @Summary Activate/Deactivate Account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body SetActiveRequest true "Active flag"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /accounts/{account_id}/active [put]
func (h *AccountHandler) SetActive(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active flag is required"})
		return
	}

	if err := h.accountService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account updated"})
}

// @Summary Audit Account Balance
// @Description Recomputes the balance from the entry history and compares with the cache
// @Tags Accounts
// @Produce json
// @Param account_id path int true "Account ID"
// @Success 200 {object} services.BalanceAudit
// @Security BearerAuth
// @Router /accounts/{account_id}/audit [get]
func (h *AccountHandler) Audit(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	audit, err := h.accountService.AuditBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, audit)
}

type MoneyRequest struct {
	Amount  int64  `json:"amount" binding:"required"`
	Purpose string `json:"purpose"`
	Remarks string `json:"remarks"`
}

type TransferRequest struct {
	TargetAccountID uint   `json:"target_account_id" binding:"required"`
	Amount          int64  `json:"amount" binding:"required"`
	Remarks         string `json:"remarks"`
}

// @Summary Transfer
// @Description Moves money between two accounts
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Source Account ID"
// @Param request body TransferRequest true "Transfer"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /accounts/{account_id}/transfer [post]
func (h *AccountHandler) Transfer(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.accountService.Transfer(c.Request.Context(), id, req.TargetAccountID, req.Amount, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}

// @Summary Deposit
// @Description Books owner capital into an account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body MoneyRequest true "Deposit"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /accounts/{account_id}/deposit [post]
func (h *AccountHandler) Deposit(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	var req MoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.accountService.Deposit(c.Request.Context(), id, req.Amount, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}

// @Summary Withdraw
// @Description Books a personal or operational expense out of an account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param account_id path int true "Account ID"
// @Param request body MoneyRequest true "Withdrawal"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /accounts/{account_id}/withdraw [post]
func (h *AccountHandler) Withdraw(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	var req MoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.accountService.Withdraw(c.Request.Context(), id, req.Amount, req.Purpose, req.Remarks, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}
