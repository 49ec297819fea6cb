package metrics

import "math"

// Maintainability computes the original, SEI and Visual Studio variants of
// the maintainability index.
func Maintainability(volume, cyclomatic float64, lines Lines) map[string]float64 {
	sloc := float64(lines.Source)
	original := 171 - 5.2*math.Log(volume) - 0.23*cyclomatic - 16.2*math.Log(sloc)
	commentRatio := float64(lines.Comment) / sloc
	sei := 171 - 5.2*math.Log2(volume) - 0.23*cyclomatic - 16.2*math.Log2(sloc) +
		50*math.Sin(math.Sqrt(commentRatio*2.4))
	vs := math.Max(0, original*100/171)

	return map[string]float64{
		MIOriginal:     original,
		MISEI:          sei,
		MIVisualStudio: vs,
	}
}
