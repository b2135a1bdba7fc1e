package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/paisabook/paisabook-api/internal/repository"
	"github.com/paisabook/paisabook-api/internal/storage"
	"github.com/paisabook/paisabook-api/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// ReportService renders ledger data into downloadable documents
type ReportService struct {
	accountSvc *AccountService
	loanRepo   repository.LoanRepository
	txRepo     repository.TransactionRepository
	archive    *storage.LocalStorage
}

// NewReportService creates a new report service
func NewReportService(accountSvc *AccountService, loanRepo repository.LoanRepository, txRepo repository.TransactionRepository, archive *storage.LocalStorage) *ReportService {
	return &ReportService{
		accountSvc: accountSvc,
		loanRepo:   loanRepo,
		txRepo:     txRepo,
		archive:    archive,
	}
}

// archiveCopy keeps a copy of every generated document for audit.
// Failures only get logged; the download itself must not fail.
func (s *ReportService) archiveCopy(data []byte, filename string) {
	if s.archive == nil {
		return
	}
	path, err := s.archive.UploadFromBytes(data, filename, "reports")
	if err != nil {
		logger.Warn("failed to archive report", "filename", filename, "error", err)
		return
	}
	logger.Debug("report archived", "path", path)
}

// rupees renders a paise amount for documents that cannot carry the rupee glyph
func rupees(paise int64) string {
	return fmt.Sprintf("Rs %.2f", float64(paise)/100)
}

// GenerateAccountStatementPDF renders the account's entry history with a
// running balance as a PDF statement.
func (s *ReportService) GenerateAccountStatementPDF(ctx context.Context, accountID uint) (*bytes.Buffer, error) {
	account, lines, err := s.accountSvc.Statement(ctx, accountID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Account Statement", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Account Statement")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s (%s)", account.Name, account.Type))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("02/01/2006 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Opening balance: %s", rupees(account.OpeningBalance)))
	pdf.Ln(8)

	// Table header
	colWidths := []float64{25, 35, 35, 30, 30, 35}
	headers := []string{"Date", "Ledger", "Reference", "Debit", "Credit", "Balance"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, line := range lines {
		debit, credit := "", ""
		if line.Entry.Debit > 0 {
			debit = rupees(line.Entry.Debit)
		}
		if line.Entry.Credit > 0 {
			credit = rupees(line.Entry.Credit)
		}
		pdf.CellFormat(colWidths[0], 6, fmt.Sprintf("%d", line.Entry.TransactionID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 6, line.Entry.Ledger, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[2], 6, fmt.Sprintf("tx-%d", line.Entry.TransactionID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[3], 6, debit, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 6, credit, "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[5], 6, rupees(line.Balance), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Closing balance: %s", rupees(account.CurrentBalance)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement pdf: %w", err)
	}
	s.archiveCopy(buf.Bytes(), fmt.Sprintf("statement-%d.pdf", accountID))
	return &buf, nil
}

// GenerateTransactionRegisterXLSX exports the filtered transaction set as an
// Excel workbook, one row per entry.
func (s *ReportService) GenerateTransactionRegisterXLSX(ctx context.Context, query *repository.ListQuery) (*bytes.Buffer, error) {
	txs, _, err := s.txRepo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Transaction ID", "Reference", "Date", "Type", "Collect Kind", "Ledger", "Debit", "Credit", "Remarks"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, tx := range txs {
		collectKind := ""
		if tx.CollectKind != nil {
			collectKind = *tx.CollectKind
		}
		remarks := ""
		if tx.Remarks != nil {
			remarks = *tx.Remarks
		}
		for _, e := range tx.Entries {
			values := []interface{}{
				tx.ID,
				tx.Reference,
				tx.Date.Format("2006-01-02"),
				tx.Type,
				collectKind,
				e.Ledger,
				float64(e.Debit) / 100,
				float64(e.Credit) / 100,
				remarks,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render transaction register: %w", err)
	}
	s.archiveCopy(buf.Bytes(), "transactions.xlsx")
	return buf, nil
}

// GenerateLoanBookCSV exports the loan portfolio as CSV
func (s *ReportService) GenerateLoanBookCSV(ctx context.Context, query *repository.ListQuery) (*bytes.Buffer, error) {
	loans, _, err := s.loanRepo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{"ID", "Name", "Type", "Taker", "Status", "Principal", "Disbursed", "Outstanding", "Interest Due", "Late Fees", "Received Principal", "Received Interest", "Next Due"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, l := range loans {
		nextDue := ""
		if l.NextDueDate != nil {
			nextDue = l.NextDueDate.Format("2006-01-02")
		}
		taker := ""
		if l.Taker.ID != 0 {
			taker = l.Taker.Name
		}

		record := []string{
			fmt.Sprintf("%d", l.ID),
			l.Name,
			l.Type,
			taker,
			l.Status,
			fmt.Sprintf("%.2f", float64(l.Principal)/100),
			fmt.Sprintf("%.2f", float64(l.Disbursed)/100),
			fmt.Sprintf("%.2f", float64(l.PrincipalOutstanding)/100),
			fmt.Sprintf("%.2f", float64(l.InterestAccruedUnpaid)/100),
			fmt.Sprintf("%.2f", float64(l.LateFeesAccrued)/100),
			fmt.Sprintf("%.2f", float64(l.TotalReceivedPrincipal)/100),
			fmt.Sprintf("%.2f", float64(l.TotalReceivedInterest)/100),
			nextDue,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	s.archiveCopy(b.Bytes(), "loan-book.csv")
	return b, nil
}
