package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paisabook/paisabook-api/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// @Summary Account Statement PDF
// @Description Downloads the account's entry history with running balance
// @Tags Reports
// @Produce application/pdf
// @Param account_id path int true "Account ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/accounts/{account_id}/statement [get]
func (h *ReportHandler) AccountStatement(c *gin.Context) {
	id, ok := parseID(c, "account_id")
	if !ok {
		return
	}

	buf, err := h.reportService.GenerateAccountStatementPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%d-%s.pdf", id, time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// @Summary Transaction Register XLSX
// @Description Downloads the filtered transaction set as an Excel workbook
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/transactions [get]
func (h *ReportHandler) TransactionRegister(c *gin.Context) {
	query := listQueryFromContext(c, txFilterKeys...)
	// Exports ignore pagination
	query.PerPage = 10000

	buf, err := h.reportService.GenerateTransactionRegisterXLSX(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// @Summary Loan Book CSV
// @Description Downloads the loan portfolio as CSV
// @Tags Reports
// @Produce text/csv
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/loans [get]
func (h *ReportHandler) LoanBook(c *gin.Context) {
	query := listQueryFromContext(c, "status", "type", "customer_id")
	query.PerPage = 10000

	buf, err := h.reportService.GenerateLoanBookCSV(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("loan-book-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
