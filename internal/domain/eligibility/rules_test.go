package eligibility_test

import (
	"math/rand"
	"testing"

	"github.com/okian/tqi/internal/domain/eligibility"
	"github.com/okian/tqi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func sum(dist []eligibility.WeightedTitle) float64 {
	total := 0.0
	for _, wt := range dist {
		total += wt.P
	}
	return total
}

func TestMaxPlausibleTitle(t *testing.T) {
	Convey("Given the default rules", t, func() {
		r := eligibility.DefaultRules()

		Convey("Then the ceiling rises with age bands", func() {
			So(r.MaxPlausibleTitle(22), ShouldEqual, model.TitleIntermediate)
			So(r.MaxPlausibleTitle(30), ShouldEqual, model.TitleIntermediate)
			So(r.MaxPlausibleTitle(35), ShouldEqual, model.TitleIntermediate)
			So(r.MaxPlausibleTitle(36), ShouldEqual, model.TitleSenior)
			So(r.MaxPlausibleTitle(49), ShouldEqual, model.TitleSenior)
			So(r.MaxPlausibleTitle(50), ShouldEqual, model.TitleDistinguished)
		})
	})
}

func TestTitleDistribution(t *testing.T) {
	Convey("Given the default rules", t, func() {
		r := eligibility.DefaultRules()

		Convey("Then every band is a probability distribution at any potential", func() {
			for _, age := range []int{22, 30, 40, 55} {
				for _, sp := range []float64{0, 25, 50, 100} {
					So(sum(r.TitleDistribution(age, sp)), ShouldAlmostEqual, 1.0, 1e-9)
					for _, wt := range r.TitleDistribution(age, sp) {
						So(wt.P, ShouldBeGreaterThanOrEqualTo, 0)
						So(wt.Title, ShouldBeLessThanOrEqualTo, r.MaxPlausibleTitle(age))
					}
				}
			}
		})

		Convey("Then young hires keep some Unranked mass", func() {
			dist := r.TitleDistribution(24, 0)
			So(dist[0].Title, ShouldEqual, model.TitleUnranked)
			So(dist[0].P, ShouldBeGreaterThan, 0)
		})

		Convey("Then rising potential shifts 26-35 toward Intermediate", func() {
			low := r.TitleDistribution(30, 0)
			high := r.TitleDistribution(30, 100)
			So(high[2].P, ShouldBeGreaterThan, low[2].P)
		})

		Convey("Then the Distinguished baseline ignores potential", func() {
			low := r.TitleDistribution(55, 0)
			high := r.TitleDistribution(55, 100)
			So(low[3].Title, ShouldEqual, model.TitleDistinguished)
			So(low[3].P, ShouldEqual, high[3].P)
			So(high[2].P, ShouldBeGreaterThan, low[2].P)
		})
	})
}

func TestDrawTitle(t *testing.T) {
	Convey("Given a seeded source", t, func() {
		r := eligibility.DefaultRules()
		rng := rand.New(rand.NewSource(7))

		Convey("When drawing many titles per age", func() {
			Convey("Then no draw exceeds the plausible ceiling", func() {
				for i := 0; i < 5000; i++ {
					age := 20 + rng.Intn(45)
					title := r.DrawTitle(rng, age, float64(rng.Intn(101)))
					So(title, ShouldBeLessThanOrEqualTo, r.MaxPlausibleTitle(age))
					if age < 36 {
						So(title, ShouldBeLessThanOrEqualTo, model.TitleIntermediate)
					}
				}
			})
		})

		Convey("When the source returns the top of the unit interval", func() {
			Convey("Then the highest reachable title is chosen", func() {
				So(r.DrawTitle(fixedRand(0.9999999999), 55, 50), ShouldEqual, model.TitleDistinguished)
				So(r.DrawTitle(fixedRand(0), 55, 50), ShouldEqual, model.TitleAssociate)
			})
		})
	})
}

func TestDrawEducation(t *testing.T) {
	Convey("Given the young Intermediate override", t, func() {
		r := eligibility.DefaultRules()

		Convey("When the general graduate rate is zero", func() {
			rng := rand.New(rand.NewSource(11))
			graduates := 0
			const n = 20000
			for i := 0; i < n; i++ {
				if r.DrawEducation(rng, 24, model.TitleIntermediate, 0).IsGraduate() {
					graduates++
				}
			}

			Convey("Then roughly 80% of young Intermediate hires are graduates", func() {
				So(float64(graduates)/n, ShouldAlmostEqual, 0.80, 0.02)
			})

			Convey("And other young hires are never graduates", func() {
				for i := 0; i < 1000; i++ {
					So(r.DrawEducation(rng, 24, model.TitleAssociate, 0), ShouldEqual, model.EducationBachelorOrBelow)
					So(r.DrawEducation(rng, 30, model.TitleIntermediate, 0), ShouldEqual, model.EducationBachelorOrBelow)
				}
			})
		})

		Convey("When the override constant is tuned to zero", func() {
			r.YoungIntermediateGraduate = 0

			Convey("Then only the general rate applies", func() {
				So(r.DrawEducation(fixedRand(0.5), 24, model.TitleIntermediate, 0), ShouldEqual, model.EducationBachelorOrBelow)
				So(r.DrawEducation(fixedRand(0.5), 24, model.TitleIntermediate, 100), ShouldEqual, model.EducationGraduateOrAbove)
			})
		})
	})
}
