package notify

import (
	"context"

	"github.com/d60-Lab/cakeshop/internal/model"
)

// Channel 一种通知方式
type Channel interface {
	Name() string
	Deliver(ctx context.Context, order *model.Order) (string, error)
}

// WhatsAppChannel 给卖家发送 WhatsApp 订单消息
type WhatsAppChannel struct {
	Messenger Messenger
	To        string
}

func (c WhatsAppChannel) Name() string { return "whatsapp" }

func (c WhatsAppChannel) Deliver(ctx context.Context, order *model.Order) (string, error) {
	body, err := RenderMessage(order)
	if err != nil {
		return "", err
	}
	return c.Messenger.SendMessage(ctx, c.To, body)
}

// EmailChannel 给卖家发送 HTML 订单邮件
type EmailChannel struct {
	Mailer Mailer
	To     string
}

func (c EmailChannel) Name() string { return "email" }

func (c EmailChannel) Deliver(ctx context.Context, order *model.Order) (string, error) {
	subject, body, err := RenderEmail(order)
	if err != nil {
		return "", err
	}
	return c.Mailer.SendEmail(ctx, c.To, subject, body)
}
