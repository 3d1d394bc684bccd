package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"movment/config"

	"go.uber.org/zap"
)

// Sender delivers a message over one external channel.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// stubSender logs instead of sending; used when a channel is disabled.
type stubSender struct {
	channel string
	logger  *zap.Logger
}

func (s stubSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("delivery stub",
		zap.String("channel", s.channel),
		zap.String("to", mask(to)),
		zap.String("subject", subject),
		zap.String("body", truncate(body, 80)),
	)
	return nil
}

type smtpSender struct {
	addr string
	auth smtp.Auth
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender returns an SMTP sender, or a logging stub when e-mail is disabled.
func NewEmailSender(cfg config.DeliveryConfig, logger *zap.Logger) Sender {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return stubSender{channel: "email", logger: logger}
	}
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &smtpSender{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}
}

// headerLine keeps a header value on one line.
var headerLine = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func (s *smtpSender) Send(_ context.Context, to, subject, body string) error {
	to = strings.TrimSpace(headerLine.Replace(to))
	subject = strings.TrimSpace(headerLine.Replace(subject))
	msg := "From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body
	if err := s.send(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

type twilioSender struct {
	sid, token, from string
	baseURL          string
	client           *http.Client
}

// NewSMSSender returns a Twilio REST sender, or a logging stub when SMS is
// disabled or not configured.
func NewSMSSender(cfg config.DeliveryConfig, logger *zap.Logger) Sender {
	if !cfg.SMSEnabled || cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return stubSender{channel: "sms", logger: logger}
	}
	return &twilioSender{
		sid:     cfg.TwilioAccountSID,
		token:   cfg.TwilioAuthToken,
		from:    cfg.TwilioFrom,
		baseURL: twilioBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *twilioSender) Send(ctx context.Context, to, _, body string) error {
	if countDigits(to) < 10 {
		return fmt.Errorf("send sms: invalid phone number")
	}
	form := url.Values{"To": {to}, "From": {s.from}, "Body": {body}}
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.sid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.sid, s.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send sms: twilio returned %s", resp.Status)
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func mask(to string) string {
	if at := strings.IndexByte(to, '@'); at > 1 {
		return to[:1] + "***" + to[at:]
	}
	if len(to) > 4 {
		return "***" + to[len(to)-4:]
	}
	return to
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
