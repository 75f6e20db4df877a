package studentdata

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"snassist-backend/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Notifier emails a plain-text summary of a snapshot diff.
type Notifier struct {
	config SmtpConfig
}

func NewNotifier(config SmtpConfig) Notifier {
	return Notifier{config: config}
}

func (n Notifier) NotifyChanges(ctx context.Context, recipient string, diff GraphDiff) error {
	ctx, span := tracer.Start(ctx, "notify:NotifyChanges")
	defer span.End()

	span.SetAttributes(attribute.String("recipient", recipient))

	if diff.Empty() {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("SN Assist <%s>", n.config.EmailAddress)
	mail.To = []string{recipient}
	mail.Subject = "Your school portal data changed"
	mail.Text = []byte(renderDiff(diff))

	err := mail.Send(
		fmt.Sprintf("%s:%d", n.config.Server, n.config.Port),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(fmt.Sprintf("%s:%d", n.config.Server, n.config.Port), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}

func renderDiff(diff GraphDiff) string {
	var b strings.Builder

	section := func(name string, added, modified, removed int) {
		if added == 0 && modified == 0 && removed == 0 {
			return
		}
		fmt.Fprintf(&b, "%s: %d added, %d changed, %d removed\n", name, added, modified, removed)
	}

	section("Grades",
		len(diff.Grades.Added), len(diff.Grades.Modified), len(diff.Grades.Removed))
	section("Subjects",
		len(diff.Subjects.Added), len(diff.Subjects.Modified), len(diff.Subjects.Removed))
	section("Absences",
		len(diff.Absences.Added), len(diff.Absences.Modified), len(diff.Absences.Removed))
	section("Late arrivals",
		len(diff.LateAbsences.Added), len(diff.LateAbsences.Modified), len(diff.LateAbsences.Removed))
	section("Transactions",
		len(diff.Transactions.Added), len(diff.Transactions.Modified), len(diff.Transactions.Removed))
	section("Teachers",
		len(diff.Teachers.Added), len(diff.Teachers.Modified), len(diff.Teachers.Removed))
	section("Students",
		len(diff.Students.Added), len(diff.Students.Modified), len(diff.Students.Removed))

	if len(diff.Grades.Added) > 0 {
		b.WriteString("\nNew grades:\n")
		for _, grade := range diff.Grades.Added {
			fmt.Fprintf(&b, "  %s  %s (%s): %.2f\n",
				grade.Date.Format(timezone.LayoutShortDate),
				grade.Title, grade.SubjectAbbreviation, grade.Value)
		}
	}
	if len(diff.Transactions.Added) > 0 {
		b.WriteString("\nNew transactions:\n")
		for _, tx := range diff.Transactions.Added {
			fmt.Fprintf(&b, "  %s  %s: %.2f\n",
				tx.Date.Format(timezone.LayoutShortDate), tx.Text, tx.Amount)
		}
	}

	return b.String()
}
