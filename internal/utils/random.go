package utils

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"
)

const minutesPerDay = 24 * 60

var commonTaskTitles = []string{
	"复习高数", "写实验报告", "背单词", "健身", "洗衣服", "整理笔记", "读论文", "刷题",
	"做饭", "打扫宿舍", "值班", "开组会", "写周报", "练琴", "跑步", "买菜",
}

var commonReservedTitles = []string{
	"睡觉", "上课", "午饭", "晚饭", "通勤", "午休",
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
var digits = "0123456789"

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

func GenerateRandomTask() domain.Task {
	return domain.Task{
		Title:    commonTaskTitles[rand.Intn(len(commonTaskTitles))] + GenerateRandomID(0, 2),
		Priority: rand.Intn(5) + 1,
		Duration: (rand.Intn(12) + 1) * 10, // 10~120 分钟
	}
}

// GenerateRandomReservedTime 随机生成一个每天重复的保留时间
func GenerateRandomReservedTime() domain.ReservedTime {
	return domain.ReservedTime{
		Title:       commonReservedTitles[rand.Intn(len(commonReservedTitles))],
		StartOffset: rand.Intn(minutesPerDay/30) * 30, // 对齐到半点
		Duration:    (rand.Intn(8) + 1) * 30,
		Period:      minutesPerDay,
	}
}

// GenerateRandomProblem 随机生成一个跨 days 天的问题
func GenerateRandomProblem(taskNum, reservedNum, days, generations int) *domain.Problem {
	p := &domain.Problem{
		MaxTime:       days * minutesPerDay,
		Generations:   generations,
		Tasks:         make([]domain.Task, taskNum),
		ReservedTimes: make([]domain.ReservedTime, reservedNum),
	}

	for i := range p.Tasks {
		p.Tasks[i] = GenerateRandomTask()
	}
	for i := range p.ReservedTimes {
		p.ReservedTimes[i] = GenerateRandomReservedTime()
	}

	return p
}
