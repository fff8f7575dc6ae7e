package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/gomail.v2"
)

// Dialer é o subconjunto de *gomail.Dialer usado pelo sender.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var failureTemplate = template.Must(template.New("failure").Parse(`Sincronização de leads falhou.

Ciclo:      {{.SyncRunID}}
Planilha:   {{.SourceID}}
Status:     {{.Status}}
Tentativas: {{.Attempts}}
Início:     {{.StartedAt.Format "02/01/2006 15:04:05"}}
Fim:        {{.FinishedAt.Format "02/01/2006 15:04:05"}}

Erro:
{{.ErrorMessage}}

O snapshot anterior em leads_data foi mantido.
`))

func NewEmailSender(host string, port int, user, password, to string) *EmailSender {
	return NewEmailSenderWithDialer(gomail.NewDialer(host, port, user, password), user, to)
}

func NewEmailSenderWithDialer(d Dialer, from, to string) *EmailSender {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &EmailSender{From: from, To: recipients, dialer: d}
}

func (s *EmailSender) SendCycleFailure(alert CycleFailureAlert) error {
	if len(s.To) == 0 {
		return fmt.Errorf("nenhum destinatário de alerta configurado")
	}

	var body bytes.Buffer
	if err := failureTemplate.Execute(&body, alert); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", fmt.Sprintf("⚠️ leadsync: ciclo %s falhou após %d tentativa(s)", alert.Status, alert.Attempts))
	m.SetBody("text/plain", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	return nil
}
