// internal/app/system/mailer/sendgrid.go
package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGrid sends through the SendGrid v3 API.
type SendGrid struct {
	key  string
	from *sgmail.Email
}

func NewSendGrid(key, fromName, fromEmail string) *SendGrid {
	return &SendGrid{key: key, from: sgmail.NewEmail(fromName, fromEmail)}
}

func (s *SendGrid) prepare(e Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = e.Subject
	p.AddTos(sgmail.NewEmail("", e.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", e.TextBody))
	if e.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", e.HTMLBody))
	}
	return m
}

func (s *SendGrid) Send(ctx context.Context, e Email) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(e))

	type result struct {
		status int
		body   string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		res, err := sendgrid.API(req)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{status: res.StatusCode, body: res.Body}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		if r.status >= http.StatusBadRequest {
			return fmt.Errorf("sendgrid: status %d: %s", r.status, r.body)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
