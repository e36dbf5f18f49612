// Package analytics реализует детекцию аномалий показаний лабораторных сенсоров
// Включает скользящую статистику по каналам, проверку границ, z-score и оценку уровня прорыва
package analytics

import "math"

const (
	// DefaultWindowCapacity размер окна истории канала
	DefaultWindowCapacity = 100
	// DefaultMinSamples минимум значений, после которого z-score считается надежным
	DefaultMinSamples = 10
)

// RollingStats хранит ограниченное окно значений канала и его среднее/дисперсию.
// Пока окно не заполнено, статистика обновляется по Уэлфорду за O(1).
// После заполнения самое старое значение вытесняется, а статистика пересчитывается
// одним проходом по буферу, поэтому накопленной погрешности нет.
type RollingStats struct {
	values     []float64
	capacity   int
	minSamples int
	index      int
	count      int
	mean       float64
	sumSqDev   float64
}

// NewRollingStats создает окно заданной емкости
func NewRollingStats(capacity, minSamples int) *RollingStats {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &RollingStats{
		values:     make([]float64, capacity),
		capacity:   capacity,
		minSamples: minSamples,
	}
}

// Add добавляет новое значение в окно
func (rs *RollingStats) Add(value float64) {
	rs.values[rs.index] = value
	rs.index = (rs.index + 1) % rs.capacity

	if rs.count < rs.capacity {
		rs.count++
		delta := value - rs.mean
		rs.mean += delta / float64(rs.count)
		rs.sumSqDev += delta * (value - rs.mean)
		return
	}

	// Окно заполнено: старое значение уже перезаписано, пересчитываем с нуля
	rs.recompute()
}

func (rs *RollingStats) recompute() {
	var sum float64
	for _, v := range rs.values[:rs.count] {
		sum += v
	}
	mean := sum / float64(rs.count)

	var sq float64
	for _, v := range rs.values[:rs.count] {
		d := v - mean
		sq += d * d
	}
	rs.mean = mean
	rs.sumSqDev = sq
}

// Count возвращает количество значений в окне
func (rs *RollingStats) Count() int {
	return rs.count
}

// Mean возвращает среднее по окну
func (rs *RollingStats) Mean() float64 {
	return rs.mean
}

// Variance возвращает дисперсию генеральной совокупности (0 при count < 2)
func (rs *RollingStats) Variance() float64 {
	if rs.count < 2 {
		return 0
	}
	variance := rs.sumSqDev / float64(rs.count)
	if variance < 0 {
		variance = 0
	}
	return variance
}

// StdDev возвращает стандартное отклонение
func (rs *RollingStats) StdDev() float64 {
	return math.Sqrt(rs.Variance())
}

// Ready сообщает, накоплено ли достаточно значений для z-score
func (rs *RollingStats) Ready() bool {
	return rs.count >= rs.minSamples
}

// ZScore вычисляет z-score значения относительно окна.
// ok == false, если истории мало или разброс нулевой, а значение отличается от среднего.
func (rs *RollingStats) ZScore(value float64) (z float64, ok bool) {
	if !rs.Ready() {
		return 0, false
	}
	stdDev := rs.StdDev()
	if stdDev == 0 {
		if value == rs.mean {
			return 0, true
		}
		return 0, false
	}
	return (value - rs.mean) / stdDev, true
}

// Values возвращает копию окна от самого старого значения к самому новому
func (rs *RollingStats) Values() []float64 {
	out := make([]float64, 0, rs.count)
	if rs.count < rs.capacity {
		return append(out, rs.values[:rs.count]...)
	}
	out = append(out, rs.values[rs.index:]...)
	return append(out, rs.values[:rs.index]...)
}
