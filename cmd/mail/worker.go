package main

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

// sender 由 *mail.Client 实现
type sender interface {
	DialAndSend(messages ...*mail.Msg) error
}

type mailWorker struct {
	from   string
	sender sender
	logger *slog.Logger
}

// consume 处理消息直到 ctx 取消或者消息通道关闭
func (w *mailWorker) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Error("消息通道已关闭")
				return
			}
			w.handle(msg)
		}
	}
}

// handle 消息本身有问题时直接丢弃，发送失败时重新入队
func (w *mailWorker) handle(msg amqp.Delivery) {
	w.logger.Info("收到消息", slog.String("message", string(msg.Body)))

	m, err := buildMessage(w.from, msg.Body)
	if err != nil {
		w.logger.Error("无法构建邮件", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	if err := w.sender.DialAndSend(m); err != nil {
		w.logger.Error("邮件发送失败", slog.String("error", err.Error()))
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
