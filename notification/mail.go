package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rodrigo-brito/stockwave/tools/log"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mail struct {
	auth              smtp.Auth
	smtpServerPort    int
	smtpServerAddress string

	to   string
	from string

	send   sendMailFunc
	logger log.Logger
}

type MailParams struct {
	SMTPServerPort    int
	SMTPServerAddress string

	To       string
	From     string
	Password string

	Logger log.Logger
}

func NewMail(params MailParams) Mail {
	return Mail{
		from:              params.From,
		to:                params.To,
		smtpServerPort:    params.SMTPServerPort,
		smtpServerAddress: params.SMTPServerAddress,
		auth: smtp.PlainAuth(
			"",
			params.From,
			params.Password,
			params.SMTPServerAddress,
		),
		send:   smtp.SendMail,
		logger: log.OrDiscard(params.Logger),
	}
}

// Notify sends text as the body of a batch report.
func (t Mail) Notify(text string) {
	t.mail("stockwave batch report", text)
}

func (t Mail) OnError(err error) {
	t.mail("🛑 stockwave error", fmt.Sprintf("Error %s", err))
}

func (t Mail) mail(subject, body string) {
	serverAddress := fmt.Sprintf("%s:%d", t.smtpServerAddress, t.smtpServerPort)

	message := strings.Join([]string{
		fmt.Sprintf(`To: "User" <%s>`, t.to),
		fmt.Sprintf(`From: "stockwave" <%s>`, t.from),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	err := t.send(serverAddress, t.auth, t.from, []string{t.to}, []byte(message))
	if err != nil {
		t.logger.
			WithError(err).
			Errorf("notification/mail: couldnt send mail")
	}
}
