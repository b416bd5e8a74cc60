package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Problem 是一次优化的输入：时间上界、任务、保留时间以及迭代代数
type Problem struct {
	MaxTime       int            `json:"maxTime" yaml:"max_time" validate:"required,gt=0"`
	Generations   int            `json:"generations" yaml:"generations" validate:"min=0"`
	Seed          *int64         `json:"seed,omitempty" yaml:"seed"`
	Tasks         []Task         `json:"tasks" yaml:"tasks" validate:"dive"`
	ReservedTimes []ReservedTime `json:"reservedTimes" yaml:"reserved_times" validate:"dive"`
	NotifyEmail   string         `json:"notifyEmail,omitempty" yaml:"notify_email" validate:"omitempty,email"`
}

// Fingerprint 计算问题的指纹，相同输入（不含通知邮箱）得到相同指纹
func (p *Problem) Fingerprint() (string, error) {
	key := struct {
		MaxTime       int            `json:"maxTime"`
		Generations   int            `json:"generations"`
		Seed          *int64         `json:"seed"`
		Tasks         []Task         `json:"tasks"`
		ReservedTimes []ReservedTime `json:"reservedTimes"`
	}{
		MaxTime:       p.MaxTime,
		Generations:   p.Generations,
		Seed:          p.Seed,
		Tasks:         p.Tasks,
		ReservedTimes: p.ReservedTimes,
	}

	data, err := json.Marshal(key)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
