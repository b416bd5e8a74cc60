package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (s *fakeSender) DialAndSend(messages ...*mail.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, messages...)
	return nil
}

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ackRecord) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ackRecord) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ackRecord) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func newTestWorker(s sender) *mailWorker {
	return &mailWorker{
		from:   "bot@example.com",
		sender: s,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func delivery(body []byte) (amqp.Delivery, *ackRecord) {
	rec := &ackRecord{}
	return amqp.Delivery{Acknowledger: rec, Body: body}, rec
}

func jobFinishedBody(t *testing.T) []byte {
	return encode(t, domain.MailMessage{
		Type: domain.MailTypeJobFinished,
		To:   "someone@example.com",
		Data: domain.JobFinishedMailData{JobID: "x", Status: "finished"},
	})
}

func TestMailWorkerSends(t *testing.T) {
	s := &fakeSender{}
	msg, rec := delivery(jobFinishedBody(t))

	newTestWorker(s).handle(msg)

	assert.True(t, rec.acked)
	assert.False(t, rec.nacked)
	require.Len(t, s.sent, 1)
}

func TestMailWorkerDropsInvalidMessage(t *testing.T) {
	s := &fakeSender{}
	msg, rec := delivery([]byte(`{"type":"reset_password","to":"someone@example.com"}`))

	newTestWorker(s).handle(msg)

	assert.True(t, rec.nacked)
	assert.False(t, rec.requeue)
	assert.Empty(t, s.sent)
}

func TestMailWorkerRequeuesOnSendFailure(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp unavailable")}
	msg, rec := delivery(jobFinishedBody(t))

	newTestWorker(s).handle(msg)

	assert.True(t, rec.nacked)
	assert.True(t, rec.requeue)
}

func TestMailWorkerConsumeStopsWhenChannelCloses(t *testing.T) {
	s := &fakeSender{}
	msgs := make(chan amqp.Delivery, 2)
	m1, r1 := delivery(jobFinishedBody(t))
	m2, r2 := delivery(jobFinishedBody(t))
	msgs <- m1
	msgs <- m2
	close(msgs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestWorker(s).consume(context.Background(), msgs)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not return after the channel was closed")
	}

	assert.True(t, r1.acked)
	assert.True(t, r2.acked)
	assert.Len(t, s.sent, 2)
}
