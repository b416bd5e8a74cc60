package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

func encode(t *testing.T, msg domain.MailMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestBuildJobFinishedMessage(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeJobFinished,
		To:   "someone@example.com",
		Data: domain.JobFinishedMailData{
			JobID:       "0b8f5b5e-6d1f-4b59-a4c2-1b0f0f4b6a11",
			Status:      "finished",
			BestFitness: 42,
			Generations: 200,
			TaskCount:   7,
		},
	})

	m, err := buildMessage("bot@example.com", body)
	require.NoError(t, err)

	recipients, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"someone@example.com"}, recipients)
	assert.Equal(t, []string{"遗传排程 - 优化任务已完成"}, m.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestBuildFailedJobMessage(t *testing.T) {
	body := encode(t, domain.MailMessage{
		Type: domain.MailTypeJobFinished,
		To:   "someone@example.com",
		Data: domain.JobFinishedMailData{JobID: "x", Status: "failed"},
	})

	m, err := buildMessage("bot@example.com", body)
	require.NoError(t, err)
	assert.Equal(t, []string{"遗传排程 - 优化任务失败"}, m.GetGenHeader(mail.HeaderSubject))
}

func TestBuildMessageErrors(t *testing.T) {
	_, err := buildMessage("bot@example.com", []byte("{"))
	assert.Error(t, err)

	_, err = buildMessage("bot@example.com", encode(t, domain.MailMessage{Type: "reset_password", To: "someone@example.com"}))
	assert.ErrorIs(t, err, errUnsupportedMailType)

	_, err = buildMessage("bot@example.com", encode(t, domain.MailMessage{Type: domain.MailTypeJobFinished, To: "not an address"}))
	assert.Error(t, err)
}
