package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"
)

// ============================================================================
// STRUCTS & TYPES
// ============================================================================

const resendEndpoint = "https://api.resend.com/emails"

// ErrEmailDisabled is returned when no Resend API key is configured.
var ErrEmailDisabled = errors.New("RESEND_API_KEY not set, email not sent")

type EmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer sends transactional e-mail through the Resend API.
type Mailer struct {
	APIKey      string
	From        string
	FrontendURL string
	Endpoint    string
	Client      *http.Client
}

func NewMailer(apiKey, from, frontendURL string) *Mailer {
	if from == "" {
		from = "Giftlist <noreply@giftlist.app>"
	}
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &Mailer{
		APIKey:      apiKey,
		From:        from,
		FrontendURL: frontendURL,
		Endpoint:    resendEndpoint,
		Client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// ============================================================================
// TEMPLATES
// ============================================================================

var invitationEmailTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Giftlist invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f3f4f6;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td style="padding: 40px 0; text-align: center; background: linear-gradient(135deg, #f472b6 0%, #a855f7 100%);">
                <h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: bold;">🎁 Giftlist</h1>
            </td>
        </tr>
        <tr>
            <td style="padding: 40px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
                    <tr>
                        <td style="padding: 40px;">
                            <h2 style="margin: 0 0 20px 0; color: #1f2937; font-size: 24px;">You're invited</h2>
                            <p style="margin: 0 0 20px 0; color: #4b5563; font-size: 16px; line-height: 1.6;">
                                <strong>{{.InviterName}}</strong> invited you to join the group <strong>"{{.GroupName}}"</strong> and share wishlists.
                            </p>
                            <a href="{{.Link}}" style="display: inline-block; padding: 16px 32px; color: #ffffff; background: #a855f7; border-radius: 8px; text-decoration: none; font-size: 16px; font-weight: 600;">
                                Accept invitation
                            </a>
                            <p style="margin: 20px 0 0 0; color: #9ca3af; font-size: 13px;">This invitation expires in 7 days.</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`))

// ============================================================================
// MESSAGES
// ============================================================================

// SendInvitationEmail sends the group invitation link to toEmail.
func (m *Mailer) SendInvitationEmail(ctx context.Context, toEmail, inviterName, groupName, token string) error {
	data := struct {
		InviterName string
		GroupName   string
		Link        string
	}{
		InviterName: inviterName,
		GroupName:   groupName,
		Link:        fmt.Sprintf("%s/invitation/accept?token=%s", m.FrontendURL, token),
	}

	var body bytes.Buffer
	if err := invitationEmailTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("rendering invitation email: %w", err)
	}

	return m.send(ctx, toEmail, fmt.Sprintf("%s invited you to %s", inviterName, groupName), body.String())
}

// ============================================================================
// SHARED PRIVATE HELPER (Resend API)
// ============================================================================

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if m.APIKey == "" {
		return ErrEmailDisabled
	}

	jsonData, err := json.Marshal(EmailRequest{
		From:    m.From,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("marshaling email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	SafeInfo("✅ Email sent to %s", MaskEmail(to))
	return nil
}
