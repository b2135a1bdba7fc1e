package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/paisabook/paisabook-api/internal/config"
	"github.com/paisabook/paisabook-api/internal/models"
	"github.com/paisabook/paisabook-api/pkg/logger"
	"github.com/resend/resend-go/v2"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// formatRupees renders a paise amount as rupees for display
func formatRupees(paise int64) string {
	return fmt.Sprintf("₹%.2f", float64(paise)/100)
}

// SendOverdueReminder mails the loan taker about a missed due date
func (s *EmailService) SendOverdueReminder(ctx context.Context, loan *models.Loan) error {
	if loan.Taker.Email == nil || *loan.Taker.Email == "" {
		return fmt.Errorf("customer %d has no email address", loan.TakerID)
	}
	to := *loan.Taker.Email

	dueDate := ""
	if loan.NextDueDate != nil {
		dueDate = loan.NextDueDate.Format("02/01/2006")
	}
	lateFees := ""
	if loan.LateFeesAccrued > 0 {
		lateFees = formatRupees(loan.LateFeesAccrued)
	}

	data := struct {
		Name      string
		LoanName  string
		DueDate   string
		AmountDue string
		LateFees  string
	}{
		Name:      loan.Taker.Name,
		LoanName:  loan.Name,
		DueDate:   dueDate,
		AmountDue: formatRupees(loan.InterestAccruedUnpaid),
		LateFees:  lateFees,
	}

	body, err := s.renderTemplate("overdue_loan.html", data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: "Payment reminder: " + loan.Name,
		Html:    body,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("[Email Sent] To: %s | Subject: Payment reminder | Loan: %d", to, loan.ID))
	return nil
}

// SendAccountCreated welcomes a newly created staff user
func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	data := struct {
		Name string
	}{
		Name: user.FullName,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{user.Email},
		Subject: "Welcome to PaisaBook",
		Html:    body,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", user.Email, err))
		return err
	}

	logger.Info(fmt.Sprintf("[Email Sent] To: %s | Subject: Welcome to PaisaBook", user.Email))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
