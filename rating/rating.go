// Package rating implements the Topcoder-family rating system: every rated
// assignment nudges each participant's rating toward their performance in
// it, damped by how often they competed before, while a volatility term
// tracks how unsettled the estimate still is.
//
// Everything here is pure math over the inputs; eligibility filtering,
// history lookups and persistence are the scheduler's business.
package rating

import (
	"math"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

// Contestant is one eligible live participation plus its prior rating
// state. Times counts previously rated assignments; while it is zero the
// baselines apply and Rating/Volatility are ignored.
type Contestant struct {
	UserID int

	Score      decimal.Decimal
	Cumtime    int64
	Tiebreaker float64

	Rating     int
	Volatility int
	Times      int
}

// Result is the freshly computed state for one contestant.
type Result struct {
	UserID     int
	Rank       int
	Rating     int
	Volatility int
}

// Recalculate ranks the contestants and computes everyone's new rating and
// volatility. The input slice is reordered into standings order and the
// results come back in that same order. Deterministic: identical inputs
// give identical outputs.
func Recalculate(contestants []*Contestant) []*Result {
	Order(contestants)

	n := len(contestants)
	if n == 0 {
		return nil
	}

	oldRating := make([]float64, n)
	oldVolatility := make([]float64, n)
	for i, c := range contestants {
		if c.Times == 0 {
			oldRating[i] = magnetar.InitialRating
			oldVolatility[i] = magnetar.InitialVolatility
		} else {
			oldRating[i] = float64(c.Rating)
			oldVolatility[i] = float64(c.Volatility)
		}
	}

	results := make([]*Result, n)
	if n == 1 {
		// Nobody to compete against: the rating stays put, only the
		// volatility of a first-timer settles.
		c := contestants[0]
		vol := int(math.Round(oldVolatility[0]))
		if c.Times == 0 {
			vol = magnetar.FirstVolatility
		}
		results[0] = &Result{UserID: c.UserID, Rank: 1, Rating: int(math.Round(oldRating[0])), Volatility: vol}
		return results
	}

	// Rows that collide on every sort key share the numeric rank;
	// otherwise ranks run strictly sequential.
	ranks := make([]int, n)
	for i := range contestants {
		ranks[i] = i + 1
		if i > 0 && compareContestants(contestants[i-1], contestants[i]) == 0 {
			ranks[i] = ranks[i-1]
		}
	}

	// Competition factor: how spread out the field is.
	var aveRating, sum1, sum2 float64
	for i := range contestants {
		aveRating += oldRating[i]
	}
	aveRating /= float64(n)
	for i := range contestants {
		sum1 += oldVolatility[i] * oldVolatility[i]
		sum2 += (oldRating[i] - aveRating) * (oldRating[i] - aveRating)
	}
	cf := math.Sqrt(sum1/float64(n) + sum2/float64(n-1))

	for i, c := range contestants {
		eRank := 0.5
		for j := range contestants {
			eRank += winProbability(oldRating[i], oldRating[j], oldVolatility[i], oldVolatility[j])
		}

		ePerf := -normalCDFInverse((eRank - 0.5) / float64(n))
		aPerf := -normalCDFInverse((float64(ranks[i]) - 0.5) / float64(n))
		perfAs := oldRating[i] + cf*(aPerf-ePerf)

		weight := 1/(1-(0.42/float64(c.Times+1)+0.18)) - 1
		if oldRating[i] > 2500 {
			weight *= 0.8
		} else if oldRating[i] >= 2000 {
			weight *= 0.9
		}
		ratingCap := 150 + 1500/float64(c.Times+2)

		newRating := (oldRating[i] + weight*perfAs) / (1 + weight)
		if newRating > oldRating[i]+ratingCap {
			newRating = oldRating[i] + ratingCap
		} else if newRating < oldRating[i]-ratingCap {
			newRating = oldRating[i] - ratingCap
		}

		var newVolatility float64
		if c.Times == 0 {
			newVolatility = magnetar.FirstVolatility
		} else {
			diff := newRating - oldRating[i]
			newVolatility = math.Sqrt(diff*diff/weight + oldVolatility[i]*oldVolatility[i]/(weight+1))
		}

		results[i] = &Result{
			UserID:     c.UserID,
			Rank:       ranks[i],
			Rating:     int(math.Round(newRating)),
			Volatility: int(math.Round(newVolatility)),
		}
	}
	return results
}

// winProbability is the chance the contestant rated rb outperforms the one
// rated ra, given their volatilities.
func winProbability(ra, rb, va, vb float64) float64 {
	return (math.Erf((rb-ra)/math.Sqrt(2*(va*va+vb*vb))) + 1) / 2
}

// rationalApproximation is Abramowitz and Stegun formula 26.2.23.
// The absolute value of the error is less than 4.5e-4.
func rationalApproximation(t float64) float64 {
	c := [3]float64{2.515517, 0.802853, 0.010328}
	d := [3]float64{1.432788, 0.189269, 0.001308}
	numerator := (c[2]*t+c[1])*t + c[0]
	denominator := ((d[2]*t+d[1])*t+d[0])*t + 1
	return t - numerator/denominator
}

func normalCDFInverse(p float64) float64 {
	if p < 0.5 {
		return -rationalApproximation(math.Sqrt(-2 * math.Log(p)))
	}
	return rationalApproximation(math.Sqrt(-2 * math.Log(1-p)))
}
