package graph

import "time"

func wallClockMS() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}
