// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// NotificationData holds the values a notification template may use.
type NotificationData struct {
	SiteName string
	BaseURL  string
	Fields   map[string]string
}

func (d NotificationData) get(k string) string { return d.Fields[k] }

type notification struct {
	subject string
	lines   []string // text lines; {{name}} placeholders filled from Fields
}

var notifications = map[string]notification{
	"join_requested": {
		subject: "New join request for {{group}}",
		lines:   []string{"{{user_name}} ({{user_email}}) asked to join {{group}}.", "Note: {{note}}"},
	},
	"join_approved": {
		subject: "You have been accepted into {{group}}",
		lines:   []string{"Hi {{user_name}},", "Your request to join {{group}} was approved."},
	},
	"join_rejected": {
		subject: "Your request to join {{group}}",
		lines:   []string{"Hi {{user_name}},", "Your request to join {{group}} was not approved. You may request again later."},
	},
	"left_group": {
		subject: "You left {{group}}",
		lines:   []string{"Hi {{user_name}},", "You are no longer enrolled in {{group}}."},
	},
	"task_created": {
		subject: "New task in {{lecture}}",
		lines:   []string{"A new task was added to {{lecture}}:", "{{task}}", "Due: {{due}}"},
	},
	"task_graded": {
		subject: "Your submission for {{task}} was graded",
		lines:   []string{"Score: {{score}}", "Feedback: {{feedback}}"},
	},
	"contact_received": {
		subject: "New contact message from {{name}}",
		lines:   []string{"From: {{name}} <{{email}}>", "{{message}}"},
	},
	"contact_replied": {
		subject: "Reply to your message",
		lines:   []string{"Hi {{name}},", "{{reply}}"},
	},
	"email_verification": {
		subject: "Verify your email address",
		lines:   []string{"Hi {{user_name}},", "Your verification code is {{code}}.", "It expires in {{expires}}."},
	},
	"password_reset": {
		subject: "Reset your password",
		lines:   []string{"Hi {{user_name}},", "Your password reset code is {{code}}.", "It expires in {{expires}}. If you did not ask for a reset, ignore this email."},
	},
	"password_changed": {
		subject: "Your password was changed",
		lines:   []string{"Hi {{user_name}},", "The password for your account was just changed."},
	},
	"account_created": {
		subject: "An account was created for you",
		lines:   []string{"Hi {{user_name}},", "An administrator created an account for {{user_email}}.", "Group: {{group}}"},
	},
}

// HasTemplate reports whether kind has a notification template.
func HasTemplate(kind string) bool {
	_, ok := notifications[kind]
	return ok
}

// BuildNotification renders the email for kind. Unknown placeholders render
// empty; lines that render to only a label are dropped.
func BuildNotification(kind, to string, data NotificationData) (Email, error) {
	n, ok := notifications[kind]
	if !ok {
		return Email{}, fmt.Errorf("no template for notification %q", kind)
	}
	subject := fill(n.subject, data)
	if data.SiteName != "" {
		subject = "[" + data.SiteName + "] " + subject
	}
	var lines []string
	for _, l := range n.lines {
		out := fill(l, data)
		if strings.HasSuffix(strings.TrimSpace(out), ":") {
			continue
		}
		lines = append(lines, out)
	}
	return Email{
		To:       to,
		Subject:  subject,
		TextBody: buildText(lines, data),
		HTMLBody: buildHTML(subject, lines, data),
	}, nil
}

func fill(s string, data NotificationData) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "{{")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := strings.Index(s[i:], "}}")
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(data.get(s[i+2 : i+j]))
		s = s[i+j+2:]
	}
}

func buildText(lines []string, data NotificationData) string {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l + "\n\n")
	}
	if data.BaseURL != "" {
		buf.WriteString(data.BaseURL + "\n")
	}
	return buf.String()
}

var notificationHTML = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; color: #374151;">
{{range .Lines}}  <p>{{.}}</p>
{{end}}{{if .BaseURL}}  <p><a href="{{.BaseURL}}">{{.BaseURL}}</a></p>
{{end}}</body>
</html>`))

func buildHTML(subject string, lines []string, data NotificationData) string {
	var buf bytes.Buffer
	_ = notificationHTML.Execute(&buf, struct {
		Subject string
		Lines   []string
		BaseURL string
	}{subject, lines, data.BaseURL})
	return buf.String()
}
