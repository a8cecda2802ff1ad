// Package eligibility maps a synthetic hire's age to the titles and education
// levels that may plausibly co-occur with it. The rules apply to simulated
// records only; real roster data is accepted as-is.
package eligibility

import (
	"math"

	"github.com/okian/tqi/internal/domain/model"
)

// Rand is the random source the draws consume. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// WeightedTitle is one entry of a title distribution.
type WeightedTitle struct {
	Title model.TitleLevel
	P     float64
}

// Rules holds every tunable constant of the age/title/education model.
// Potential-scaled fields are multiplied by seniorPotential normalized to 0..1.
type Rules struct {
	YoungCutoff   int // ages below are "young"
	MidCutoff     int // Senior becomes reachable at this age
	VeteranCutoff int // Distinguished becomes reachable at this age

	YoungIntermediateBase      float64
	YoungIntermediatePotential float64
	YoungAssociate             float64

	EarlyUnranked              float64 // scaled by (1 - potential)
	EarlyIntermediateBase      float64
	EarlyIntermediatePotential float64

	MidSeniorBase        float64
	MidSeniorPotential   float64
	MidIntermediateShare float64 // share of the non-senior mass

	VeteranDistinguished     float64 // independent of potential
	VeteranSeniorBase        float64
	VeteranSeniorPotential   float64
	VeteranIntermediateShare float64

	// YoungIntermediateGraduate is the probability that a young hire holding an
	// Intermediate title is forced to Graduate-or-above education.
	YoungIntermediateGraduate float64
}

// DefaultRules returns the stock calibration.
func DefaultRules() Rules {
	return Rules{
		YoungCutoff:   26,
		MidCutoff:     36,
		VeteranCutoff: 50,

		YoungIntermediateBase:      0.10,
		YoungIntermediatePotential: 0.10,
		YoungAssociate:             0.50,

		EarlyUnranked:              0.10,
		EarlyIntermediateBase:      0.30,
		EarlyIntermediatePotential: 0.50,

		MidSeniorBase:        0.10,
		MidSeniorPotential:   0.60,
		MidIntermediateShare: 0.70,

		VeteranDistinguished:     0.05,
		VeteranSeniorBase:        0.30,
		VeteranSeniorPotential:   0.50,
		VeteranIntermediateShare: 0.80,

		YoungIntermediateGraduate: 0.80,
	}
}

// MaxPlausibleTitle returns the highest title a synthetic hire of age may hold.
func (r Rules) MaxPlausibleTitle(age int) model.TitleLevel {
	switch {
	case age < r.MidCutoff:
		return model.TitleIntermediate
	case age < r.VeteranCutoff:
		return model.TitleSenior
	default:
		return model.TitleDistinguished
	}
}

// TitleDistribution returns the probability of each reachable title for age,
// ordered from lowest to highest. seniorPotential is on the 0..100 scale.
func (r Rules) TitleDistribution(age int, seniorPotential float64) []WeightedTitle {
	p := clamp01(seniorPotential / 100)

	switch {
	case age < r.YoungCutoff:
		inter := clamp01(r.YoungIntermediateBase + r.YoungIntermediatePotential*p)
		assoc := math.Min(clamp01(r.YoungAssociate), 1-inter)
		return []WeightedTitle{
			{Title: model.TitleUnranked, P: 1 - inter - assoc},
			{Title: model.TitleAssociate, P: assoc},
			{Title: model.TitleIntermediate, P: inter},
		}
	case age < r.MidCutoff:
		unranked := clamp01(r.EarlyUnranked * (1 - p))
		inter := math.Min(clamp01(r.EarlyIntermediateBase+r.EarlyIntermediatePotential*p), 1-unranked)
		return []WeightedTitle{
			{Title: model.TitleUnranked, P: unranked},
			{Title: model.TitleAssociate, P: 1 - unranked - inter},
			{Title: model.TitleIntermediate, P: inter},
		}
	case age < r.VeteranCutoff:
		senior := clamp01(r.MidSeniorBase + r.MidSeniorPotential*p)
		rest := 1 - senior
		share := clamp01(r.MidIntermediateShare)
		return []WeightedTitle{
			{Title: model.TitleAssociate, P: rest * (1 - share)},
			{Title: model.TitleIntermediate, P: rest * share},
			{Title: model.TitleSenior, P: senior},
		}
	default:
		dist := clamp01(r.VeteranDistinguished)
		senior := (1 - dist) * clamp01(r.VeteranSeniorBase+r.VeteranSeniorPotential*p)
		rest := 1 - dist - senior
		share := clamp01(r.VeteranIntermediateShare)
		return []WeightedTitle{
			{Title: model.TitleAssociate, P: rest * (1 - share)},
			{Title: model.TitleIntermediate, P: rest * share},
			{Title: model.TitleSenior, P: senior},
			{Title: model.TitleDistinguished, P: dist},
		}
	}
}

// DrawTitle samples a title for a synthetic hire of age.
func (r Rules) DrawTitle(rng Rand, age int, seniorPotential float64) model.TitleLevel {
	dist := r.TitleDistribution(age, seniorPotential)
	u := rng.Float64()
	cum := 0.0
	last := dist[0].Title
	for _, wt := range dist {
		if wt.P <= 0 {
			continue
		}
		last = wt.Title
		cum += wt.P
		if u < cum {
			return wt.Title
		}
	}
	// Rounding left u past the final boundary.
	return last
}

// DrawEducation samples an education level. graduateRate is on the 0..100
// scale. Young Intermediate hires try the graduate override first and fall
// back to the general rate when it misses.
func (r Rules) DrawEducation(rng Rand, age int, title model.TitleLevel, graduateRate float64) model.EducationLevel {
	if age < r.YoungCutoff && title == model.TitleIntermediate {
		if rng.Float64() < clamp01(r.YoungIntermediateGraduate) {
			return model.EducationGraduateOrAbove
		}
	}
	if rng.Float64() < clamp01(graduateRate/100) {
		return model.EducationGraduateOrAbove
	}
	return model.EducationBachelorOrBelow
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
