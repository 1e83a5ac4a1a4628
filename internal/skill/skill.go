package skill

import (
	"math"
)

// Rating is a Bayesian skill estimate: a posterior mean and the
// uncertainty around it. The zero value is not useful; start new
// players with NewRating.
type Rating struct {
	Mu    float64
	Sigma float64
}

// Winner identifies which side of a two-team match won. Draws are not
// modeled; a match always resolves to exactly one of these.
type Winner int

const (
	TeamA Winner = 1
	TeamB Winner = 2
)

const (
	// DefaultMu is the prior mean skill for an unseen player.
	DefaultMu = 25.0
	// DefaultSigma is the prior uncertainty (25/3). It is also the hard
	// cap: sigma is never re-inflated past its starting value.
	DefaultSigma = DefaultMu / 3.0
	// MinSigma keeps the posterior variance strictly positive.
	MinSigma = 1e-4

	// beta is the per-player performance variance scale. The standard
	// choice of sigma0/2 means a player performs within one beta of
	// their true skill most of the time.
	beta = DefaultSigma / 2.0
)

// NewRating returns the prior rating assigned to a player with no
// match history.
func NewRating() Rating {
	return Rating{Mu: DefaultMu, Sigma: DefaultSigma}
}

// Shown is the conservative presentation rating: floor(max(mu-3*sigma, 0)).
// It is derived from (mu, sigma) on demand and never stored.
func Shown(r Rating) int {
	return int(math.Floor(math.Max(r.Mu-3*r.Sigma, 0)))
}

// Update computes posterior ratings for every player in a two-team
// match given the outcome. It is a pure function: inputs are never
// mutated, outputs preserve input order, and identical inputs produce
// bit-identical outputs.
//
// Uneven team sizes are valid. Empty teams are a caller contract
// violation; Update does not guard against them.
//
// The update is the standard two-team TrueSkill mean/variance shift
// with zero draw probability. Winners' mu never decreases and losers'
// mu never increases (v is strictly positive). No additive dynamics
// term is applied, so sigma only shrinks from a genuine resolution.
func Update(teamA, teamB []Rating, winner Winner) ([]Rating, []Rating) {
	var winners, losers []Rating
	if winner == TeamA {
		winners, losers = teamA, teamB
	} else {
		winners, losers = teamB, teamA
	}

	// Pooled performance variance across both teams.
	n := float64(len(teamA) + len(teamB))
	c2 := n * beta * beta
	for _, r := range teamA {
		c2 += r.Sigma * r.Sigma
	}
	for _, r := range teamB {
		c2 += r.Sigma * r.Sigma
	}
	c := math.Sqrt(c2)

	var winSum, loseSum float64
	for _, r := range winners {
		winSum += r.Mu
	}
	for _, r := range losers {
		loseSum += r.Mu
	}

	t := (winSum - loseSum) / c
	v := vWin(t)
	w := wWin(t, v)

	update := func(r Rating, won bool) Rating {
		s2 := r.Sigma * r.Sigma
		muShift := (s2 / c) * v
		if !won {
			muShift = -muShift
		}
		sigma2 := s2 * (1 - (s2/c2)*w)
		sigma := math.Sqrt(math.Max(sigma2, MinSigma*MinSigma))
		// Resolutions only sharpen the estimate; never exceed the prior
		// uncertainty or the pre-match value.
		if sigma > r.Sigma {
			sigma = r.Sigma
		}
		if sigma > DefaultSigma {
			sigma = DefaultSigma
		}
		return Rating{Mu: r.Mu + muShift, Sigma: sigma}
	}

	newA := make([]Rating, len(teamA))
	newB := make([]Rating, len(teamB))
	wonA := winner == TeamA
	for i, r := range teamA {
		newA[i] = update(r, wonA)
	}
	for i, r := range teamB {
		newB[i] = update(r, !wonA)
	}
	return newA, newB
}

// vWin is the additive correction for a truncated Gaussian at zero
// draw margin: pdf(t)/cdf(t). For deep-negative t the ratio
// approaches -t; the guard avoids 0/0 underflow.
func vWin(t float64) float64 {
	denom := normCDF(t)
	if denom < 2.2e-162 {
		return -t
	}
	return normPDF(t) / denom
}

// wWin is the multiplicative variance correction, v*(v+t), clamped
// into (0, 1) so the posterior variance stays positive.
func wWin(t, v float64) float64 {
	w := v * (v + t)
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
