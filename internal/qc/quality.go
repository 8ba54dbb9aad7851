// Package qc is the small monitoring framework the MFT quality-control
// tasks plug into: published monitor objects, activities, tasks driven in
// cycles and checks that turn the published objects into a Quality.
package qc

import "fmt"

// Quality is the verdict of a check.
type Quality int

const (
	QualityNull Quality = iota
	QualityGood
	QualityMedium
	QualityBad
)

var qualityNames = [...]string{
	QualityNull:   "Null",
	QualityGood:   "Good",
	QualityMedium: "Medium",
	QualityBad:    "Bad",
}

func (q Quality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// ParseQuality is the inverse of Quality.String.
func ParseQuality(s string) (Quality, error) {
	for i, name := range qualityNames {
		if name == s {
			return Quality(i), nil
		}
	}
	return QualityNull, fmt.Errorf("unknown quality %q", s)
}
