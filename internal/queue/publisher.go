// Package queue 负责向 rabbitmq 投递消息
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

// Channel 是 *amqp.Channel 中用到的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueDeclarer 是 *amqp.Channel 中声明队列的部分
type QueueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// DeclareQueues 声明持久化队列，已存在时不会重复创建
func DeclareQueues(ch QueueDeclarer, names ...string) error {
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("无法声明队列 %s: %w", name, err)
		}
	}
	return nil
}

type Publisher struct {
	ch      Channel
	timeout time.Duration
}

func NewPublisher(ch Channel, timeout time.Duration) *Publisher {
	return &Publisher{
		ch:      ch,
		timeout: timeout,
	}
}

// PublishJSON 把 v 序列化后投递到默认交换机上名为 queue 的队列
func (p *Publisher) PublishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// MailNotifier 在任务结束后向邮件队列投递通知
type MailNotifier struct {
	publisher *Publisher
	queue     string
}

func NewMailNotifier(publisher *Publisher, queue string) *MailNotifier {
	return &MailNotifier{
		publisher: publisher,
		queue:     queue,
	}
}

func (n *MailNotifier) NotifyJobFinished(ctx context.Context, job *domain.OptimizationJob) error {
	data := domain.JobFinishedMailData{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		TaskCount: len(job.Problem.Tasks),
	}
	if job.Result != nil {
		data.BestFitness = job.Result.BestFitness
		data.Generations = job.Result.Generations
	}

	return n.publisher.PublishJSON(ctx, n.queue, domain.MailMessage{
		Type: domain.MailTypeJobFinished,
		To:   job.Problem.NotifyEmail,
		Data: data,
	})
}
