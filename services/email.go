package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// EmailService sends transactional mail through the Resend HTTP API.
type EmailService struct {
	apiKey      string
	fromEmail   string
	frontendURL string
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func NewEmailService() *EmailService {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	fromEmail := os.Getenv("EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "CashWise <noreply@cashwise.app>"
	}

	return &EmailService{
		apiKey:      os.Getenv("RESEND_API_KEY"),
		fromEmail:   fromEmail,
		frontendURL: frontendURL,
	}
}

func (s *EmailService) SendInvitation(to, inviterName, householdName, token string) error {
	if s.apiKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	invitationURL := fmt.Sprintf("%s/invitation/accept?token=%s", s.frontendURL, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; background: #f3f4f6; margin: 0; padding: 20px;">
	<div style="max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 12px; padding: 40px;">
		<h1 style="color: #1f2937;">💰 CashWise</h1>
		<p style="color: #4b5563; font-size: 16px;">
			%s invited you to join the household <strong>%s</strong>.
		</p>
		<a href="%s" style="display: inline-block; background: #667eea; color: #ffffff; padding: 15px 30px; text-decoration: none; border-radius: 8px;">
			Accept invitation
		</a>
		<p style="color: #9ca3af; font-size: 13px;">This invitation expires in 7 days.</p>
	</div>
</body>
</html>`, inviterName, householdName, invitationURL)

	payload := emailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: fmt.Sprintf("%s invited you to %s on CashWise", inviterName, householdName),
		HTML:    htmlBody,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}
