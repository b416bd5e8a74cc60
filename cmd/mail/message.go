package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var errUnsupportedMailType = errors.New("不支持的邮件类型")

// 与 domain.MailMessage 相同，只是 Data 延迟到确定类型后再解析
type incomingMailMessage struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// buildMessage 根据队列中的消息构建邮件
func buildMessage(from string, body []byte) (*mail.Msg, error) {
	mailMessage := incomingMailMessage{}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, err
	}
	if err := m.To(mailMessage.To); err != nil {
		return nil, err
	}

	switch mailMessage.Type {
	case domain.MailTypeJobFinished:
		data := domain.JobFinishedMailData{}
		if err := json.Unmarshal(mailMessage.Data, &data); err != nil {
			return nil, err
		}
		if err := m.SetBodyHTMLTemplate(templates.Lookup("job_finished_email.html"), data); err != nil {
			return nil, err
		}

		if data.Status == string(domain.JobStatusFinished) {
			m.Subject("遗传排程 - 优化任务已完成")
		} else {
			m.Subject("遗传排程 - 优化任务失败")
		}
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedMailType, mailMessage.Type)
	}

	return m, nil
}
