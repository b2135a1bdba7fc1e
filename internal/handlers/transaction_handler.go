package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paisabook/paisabook-api/internal/ledger"
	"github.com/paisabook/paisabook-api/internal/middleware"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/internal/services"
)

type TransactionHandler struct {
	txService *services.TransactionService
}

func NewTransactionHandler(txService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: txService}
}

var txFilterKeys = []string{"type", "collect_kind", "customer_id", "loan_id", "date_from", "date_to", "include_deleted"}

// @Summary List Transactions
// @Tags Transactions
// @Produce json
// @Param type query string false "Filter by type"
// @Param loan_id query int false "Filter by loan"
// @Param customer_id query int false "Filter by customer"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /transactions [get]
func (h *TransactionHandler) Index(c *gin.Context) {
	query := listQueryFromContext(c, txFilterKeys...)

	txs, total, err := h.txService.ListTransactions(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]interface{}, 0, len(txs))
	for i := range txs {
		responses = append(responses, txs[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": responses,
		"pagination":   paginationMeta(query, total),
	})
}

// @Summary Get Transaction
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /transactions/{transaction_id} [get]
func (h *TransactionHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}

	tx, err := h.txService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx.ToResponse()})
}

type AdjustEntry struct {
	Ledger     string `json:"ledger" binding:"required"`
	AccountID  *uint  `json:"account_id"`
	LoanID     *uint  `json:"loan_id"`
	CustomerID *uint  `json:"customer_id"`
	Debit      int64  `json:"debit"`
	Credit     int64  `json:"credit"`
}

type AdjustRequest struct {
	Entries []AdjustEntry `json:"entries" binding:"required"`
	Remarks string        `json:"remarks"`
}

// @Summary Create Adjustment
// @Description Books a manual balanced correction (admin only)
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body AdjustRequest true "Adjustment"
// @Success 201 {object} models.TransactionResponse
// @Security BearerAuth
// @Router /transactions/adjust [post]
func (h *TransactionHandler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	drafts := make([]ledger.EntryDraft, 0, len(req.Entries))
	for _, e := range req.Entries {
		drafts = append(drafts, ledger.EntryDraft{
			Ledger:     ledger.Tag(e.Ledger),
			AccountID:  e.AccountID,
			LoanID:     e.LoanID,
			CustomerID: e.CustomerID,
			Debit:      e.Debit,
			Credit:     e.Credit,
		})
	}

	tx, err := h.txService.Execute(c.Request.Context(), &ledger.Request{
		Kind:      models.TransactionTypeAdjust,
		Entries:   drafts,
		Remarks:   req.Remarks,
		CreatedBy: middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx.ToResponse()})
}

type RemarksRequest struct {
	Remarks string `json:"remarks" binding:"required"`
}

// @Summary Update Remarks
// @Description Annotates a committed transaction; financial content is immutable
// @Tags Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Param request body RemarksRequest true "Remarks"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id}/remarks [put]
func (h *TransactionHandler) UpdateRemarks(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}

	var req RemarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "remarks are required"})
		return
	}

	if err := h.txService.UpdateRemarks(c.Request.Context(), id, req.Remarks); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "remarks updated"})
}

// @Summary Soft-Delete Transaction
// @Description Flags a transaction as deleted for audit; balances are not reversed
// @Tags Transactions
// @Produce json
// @Param transaction_id path int true "Transaction ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /transactions/{transaction_id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}

	if err := h.txService.SoftDelete(c.Request.Context(), id, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

// @Summary Transaction Summary
// @Description Totals the debit and credit sides over the filtered set
// @Tags Transactions
// @Produce json
// @Success 200 {object} repository.TransactionSummary
// @Security BearerAuth
// @Router /transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	query := listQueryFromContext(c, txFilterKeys...)

	summary, err := h.txService.Summary(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary Transaction Statistics
// @Description Buckets transaction volume by day, week, month or year
// @Tags Transactions
// @Produce json
// @Param group_by query string false "day|week|month|year" default(day)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} []repository.PeriodStat
// @Security BearerAuth
// @Router /transactions/stats [get]
func (h *TransactionHandler) Stats(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")

	to := time.Now()
	from := to.AddDate(0, -1, 0)
	if v := c.Query("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		}
	}

	stats, err := h.txService.Stats(c.Request.Context(), groupBy, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
