package scheduler

import "github.com/sysu-ecnc-dev/genetic-scheduler/backend/internal/domain"

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// bestIndex 返回适应度最小的个体下标，相同时取靠前的
func bestIndex(fitnesses []int) int {
	best := 0
	for i := 1; i < len(fitnesses); i++ {
		if fitnesses[i] < fitnesses[best] {
			best = i
		}
	}
	return best
}

func generationStats(generation int, pop Population, fitnesses []int) domain.GenerationStats {
	best := bestIndex(fitnesses)

	sum := 0
	for _, f := range fitnesses {
		sum += f
	}

	bestSchedule := make([]int, len(pop[best]))
	copy(bestSchedule, pop[best])

	return domain.GenerationStats{
		Generation:   generation,
		BestFitness:  fitnesses[best],
		AvgFitness:   float64(sum) / float64(len(fitnesses)),
		BestSchedule: bestSchedule,
	}
}
