package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotConfigured 渠道未配置凭据
var ErrNotConfigured = errors.New("notification provider not configured")

// Messenger 即时消息渠道（WhatsApp）
type Messenger interface {
	SendMessage(ctx context.Context, to, body string) (messageID string, err error)
}

// Mailer 邮件渠道
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) (id string, err error)
}

// TwilioMessenger 通过 Twilio 发送 WhatsApp 消息
type TwilioMessenger struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioMessenger(accountSID, authToken, from string) *TwilioMessenger {
	if accountSID == "" || authToken == "" {
		return &TwilioMessenger{}
	}
	return &TwilioMessenger{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		from:   WhatsAppAddress(from),
	}
}

// WhatsAppAddress 去空白并补全 whatsapp: 前缀
func WhatsAppAddress(number string) string {
	number = strings.Join(strings.Fields(number), "")
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (m *TwilioMessenger) SendMessage(ctx context.Context, to, body string) (string, error) {
	if m.client == nil || m.from == "" {
		return "", ErrNotConfigured
	}
	to = WhatsAppAddress(to)
	if to == m.from {
		return "", fmt.Errorf("sender %s equals recipient; whatsapp_number must be the Twilio sender", m.from)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(m.from)
	params.SetTo(to)
	params.SetBody(body)

	// SDK 不接受 context，调用放入 goroutine 以便超时返回
	type result struct {
		sid string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := m.client.Api.CreateMessage(params)
		if err != nil {
			ch <- result{err: err}
			return
		}
		var sid string
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		ch <- result{sid: sid}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.sid, r.err
	}
}

// ResendMailer 通过 Resend 发送邮件
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	if apiKey == "" {
		return &ResendMailer{from: from}
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	if m.client == nil {
		return "", ErrNotConfigured
	}
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}
