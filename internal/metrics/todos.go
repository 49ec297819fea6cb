package metrics

import (
	"regexp"
)

var (
	todoPattern  = regexp.MustCompile(`(?i)\bTODO\b`)
	fixmePattern = regexp.MustCompile(`(?i)\bFIXME\b`)
	hackPattern  = regexp.MustCompile(`(?i)\bHACK\b`)
)

// CountMarkers scans text for TODO, FIXME and HACK markers.
func CountMarkers(text []byte) map[string]float64 {
	return map[string]float64{
		TodoCount:  float64(len(todoPattern.FindAllIndex(text, -1))),
		FixmeCount: float64(len(fixmePattern.FindAllIndex(text, -1))),
		HackCount:  float64(len(hackPattern.FindAllIndex(text, -1))),
	}
}
