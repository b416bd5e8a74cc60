package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const MailTypeJobFinished = "job_finished"

type JobFinishedMailData struct {
	JobID       string `json:"jobID"`
	Status      string `json:"status"`
	BestFitness int    `json:"bestFitness"`
	Generations int    `json:"generations"`
	TaskCount   int    `json:"taskCount"`
}

// OptimizationMessage 是投递到优化队列中的消息
type OptimizationMessage struct {
	JobID string `json:"jobID"`
}
