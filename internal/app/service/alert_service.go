package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

const alertSubjectPrefix = "[eKaty Alert] "

// Mailer delivers alert mail.
type Mailer interface {
	Send(to []string, subject, body string) error
}

type AlertService interface {
	SendAlert(alertType, subject, body string, details map[string]interface{}) error
}

type alertService struct {
	audit      AuditService
	mailer     Mailer
	recipients []string
	now        func() time.Time
}

// NewAlertService records every alert in the audit log; mailer may be nil.
func NewAlertService(audit AuditService, mailer Mailer, recipients []string) AlertService {
	return &alertService{
		audit:      audit,
		mailer:     mailer,
		recipients: recipients,
		now:        time.Now,
	}
}

// SendAlert writes the audit row first so the alert survives a mail failure.
func (s *alertService) SendAlert(alertType, subject, body string, details map[string]interface{}) error {
	changes := map[string]interface{}{
		"subject": subject,
		"message": body,
	}
	if len(details) > 0 {
		changes["details"] = details
	}
	s.audit.Record(alertType, model.EntitySystem, "", changes)

	logger.Warn("Alert raised", map[string]interface{}{
		"type":    alertType,
		"subject": subject,
	})

	if s.mailer == nil || len(s.recipients) == 0 {
		return nil
	}
	return s.mailer.Send(s.recipients, alertSubjectPrefix+subject, s.formatBody(alertType, body, details))
}

func (s *alertService) formatBody(alertType, body string, details map[string]interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert: %s\n", alertType)
	fmt.Fprintf(&b, "Time: %s\n\n", s.now().UTC().Format(time.RFC3339))
	b.WriteString(body)
	b.WriteString("\n")

	if len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, details[k])
		}
	}
	return b.String()
}
