package prism

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Explain renders one clause per dimension, "<Title>: <rationale>", joined with "; ".
// Dimensions without a rationale get a band description of their value.
func Explain(v Vector, rationales map[Dimension]string) string {
	parts := make([]string, 0, len(Dimensions))
	for _, d := range Dimensions {
		text := strings.TrimSpace(rationales[d])
		if text == "" {
			text = band(v, d)
		}
		parts = append(parts, d.Title()+": "+text)
	}
	return strings.Join(parts, "; ")
}

func band(v Vector, d Dimension) string {
	val := v.Get(d)
	u := v.Scale.ToUnit(val)
	_, hi := v.Scale.Bounds()

	var level string
	switch {
	case u >= 0.75:
		level = "high"
	case u >= 0.5:
		level = "moderate"
	case u >= 0.25:
		level = "limited"
	default:
		level = "minimal"
	}
	return fmt.Sprintf("%s (%s/%s)", level, formatScore(val), formatScore(hi))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
