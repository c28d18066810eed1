package ocr

// Gemini 3 Flash pricing, USD per 1M tokens.
const (
	inputCostPer1M  = 0.50
	outputCostPer1M = 3.00
)

// EstimateCost returns the estimated USD cost of the recorded token usage.
func EstimateCost(u Usage) float64 {
	inputCost := float64(u.Input) / 1_000_000 * inputCostPer1M
	outputCost := float64(u.Output) / 1_000_000 * outputCostPer1M
	return inputCost + outputCost
}
