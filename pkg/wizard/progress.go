package wizard

import "fmt"

// Progress is the indicator shown above the steps.
type Progress struct {
	Step    int     `json:"step"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

// ProgressFor computes step/total*100 and the "Passo X de N" label.
// Steps past the last input step are clamped to 100%.
func ProgressFor(step, total int) Progress {
	if total <= 0 {
		return Progress{}
	}
	if step > total {
		step = total
	}
	if step < 1 {
		step = 1
	}
	return Progress{
		Step:    step,
		Total:   total,
		Percent: float64(step) / float64(total) * 100,
		Label:   fmt.Sprintf("Passo %d de %d", step, total),
	}
}
