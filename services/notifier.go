package services

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/osu/ShopiPing/models"
	"github.com/osu/ShopiPing/sender"
)

var reminderTemplate = template.Must(template.New("reminder").Parse(
	"Hi{{if .Name}} {{.Name}}{{end}}, you left something in your cart! " +
		"Use code {{.Code}} for {{.PercentOff}}% off if you check out within the next hour: {{.URL}}",
))

type reminderData struct {
	Name       string
	Code       string
	PercentOff int
	URL        string
}

// Notifier delivers one recovery reminder. A blank contact fails with a
// MissingContactError that has no CartID.
type Notifier interface {
	SendReminder(ctx context.Context, contact, recoveryURL, code, name string) (sender.SendResult, error)
}

type smsNotifier struct {
	sms sender.SMSSender
}

func NewNotifier(sms sender.SMSSender) Notifier {
	return &smsNotifier{sms: sms}
}

// RenderReminder builds the reminder text.
func RenderReminder(recoveryURL, code, name string) (string, error) {
	var buf bytes.Buffer
	err := reminderTemplate.Execute(&buf, reminderData{
		Name:       name,
		Code:       code,
		PercentOff: models.PercentageOff,
		URL:        recoveryURL,
	})
	return buf.String(), err
}

func (n *smsNotifier) SendReminder(ctx context.Context, contact, recoveryURL, code, name string) (sender.SendResult, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return sender.SendResult{}, &MissingContactError{}
	}

	body, err := RenderReminder(recoveryURL, code, name)
	if err != nil {
		return sender.SendResult{}, &SendError{Err: err}
	}

	res, err := n.sms.SendSMS(ctx, contact, body)
	if err != nil {
		return sender.SendResult{}, &SendError{Err: err}
	}
	return res, nil
}
