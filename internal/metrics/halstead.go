package metrics

import "math"

// Halstead accumulates operator and operand occurrences.
type Halstead struct {
	operators map[string]int
	operands  map[string]int
}

// NewHalstead returns an empty accumulator.
func NewHalstead() *Halstead {
	return &Halstead{operators: make(map[string]int), operands: make(map[string]int)}
}

// Operator records one occurrence of an operator token.
func (h *Halstead) Operator(tok string) { h.operators[tok]++ }

// Operand records one occurrence of an operand token.
func (h *Halstead) Operand(tok string) { h.operands[tok]++ }

// Counts returns n1, N1, n2 and N2.
func (h *Halstead) Counts() (n1, bigN1, n2, bigN2 float64) {
	for _, c := range h.operators {
		bigN1 += float64(c)
	}
	for _, c := range h.operands {
		bigN2 += float64(c)
	}
	return float64(len(h.operators)), bigN1, float64(len(h.operands)), bigN2
}

// Volume returns the program volume.
func (h *Halstead) Volume() float64 {
	n1, bigN1, n2, bigN2 := h.Counts()
	return (bigN1 + bigN2) * math.Log2(n1+n2)
}

// Metrics derives the full Halstead suite. Empty scopes yield NaN or
// infinite values for the ratio metrics; callers normalize them.
func (h *Halstead) Metrics() map[string]float64 {
	n1, bigN1, n2, bigN2 := h.Counts()

	length := bigN1 + bigN2
	vocabulary := n1 + n2
	estimated := n1*math.Log2(n1) + n2*math.Log2(n2)
	if n1 == 0 {
		estimated = n2 * math.Log2(n2)
	}
	if n2 == 0 {
		estimated = n1 * math.Log2(n1)
	}
	if n1 == 0 && n2 == 0 {
		estimated = 0
	}
	volume := length * math.Log2(vocabulary)
	difficulty := n1 / 2 * bigN2 / n2
	effort := difficulty * volume

	return map[string]float64{
		HalsteadUniqueOperators: n1,
		HalsteadOperators:       bigN1,
		HalsteadUniqueOperands:  n2,
		HalsteadOperands:        bigN2,
		HalsteadLength:          length,
		HalsteadEstimatedLength: estimated,
		HalsteadPurityRatio:     estimated / length,
		HalsteadVocabulary:      vocabulary,
		HalsteadVolume:          volume,
		HalsteadDifficulty:      difficulty,
		HalsteadLevel:           1 / difficulty,
		HalsteadEffort:          effort,
		HalsteadTime:            effort / 18,
		HalsteadBugs:            math.Pow(effort, 2.0/3.0) / 3000,
	}
}
