package notify

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"

	"panchayat/internal/config"
)

var awardedBody = template.Must(template.New("awarded").Parse(`Dear {{.AgencyName}},

We are pleased to inform you that your bid has been accepted.

NIT memo number: {{.NitMemoNumber}}
NIT memo date:   {{.NitMemoDate}}
Work serial no.: {{.WorkSerialNumber}}

The work order has been issued in your favour. Please contact
the office to execute the agreement.

This is an automated message.
`))

type awardedData struct {
	AgencyName       string
	NitMemoNumber    string
	NitMemoDate      string
	WorkSerialNumber int
}

// Mailer отправляет уведомления агентствам по SMTP
type Mailer struct {
	client *mail.Client
	from   string
}

func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Mailer{client: client, from: cfg.From}, nil
}

// SendAwardedNotification сообщает агентству о присуждении работы
func (m *Mailer) SendAwardedNotification(ctx context.Context, email, nitMemoNumber string, nitMemoDate time.Time, workSerialNumber int, agencyName string) error {
	msg, err := AwardedMessage(m.from, email, nitMemoNumber, nitMemoDate, workSerialNumber, agencyName)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send awarded notification to %s: %w", email, err)
	}
	return nil
}

// AwardedMessage собирает письмо о присуждении
func AwardedMessage(from, to, nitMemoNumber string, nitMemoDate time.Time, workSerialNumber int, agencyName string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Work awarded: NIT %s, work %d", nitMemoNumber, workSerialNumber))

	data := awardedData{
		AgencyName:       agencyName,
		NitMemoNumber:    nitMemoNumber,
		NitMemoDate:      nitMemoDate.Format("02-01-2006"),
		WorkSerialNumber: workSerialNumber,
	}
	if err := msg.SetBodyTextTemplate(awardedBody, data); err != nil {
		return nil, fmt.Errorf("render message body: %w", err)
	}
	return msg, nil
}
