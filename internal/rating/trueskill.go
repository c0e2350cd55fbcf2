package rating

import (
	"math"
)

// Gaussian helpers for the two team TrueSkill update. Everything here works on values already
// scaled by the standard deviation of the team performance difference.

func pdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func cdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// ppf is the inverse of cdf.
func ppf(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// drawMargin converts a draw probability into the performance difference under which a game
// is considered drawn. size is the number of players in the game.
func drawMargin(probability float64, size int, beta float64) float64 {
	return ppf((probability+1)/2) * math.Sqrt(float64(size)) * beta
}

// vWin is the additive mean correction for a win with performance difference t and draw margin e.
func vWin(t, e float64) float64 {
	x := t - e

	denom := cdf(x)
	if denom == 0 {
		return -x
	}

	return pdf(x) / denom
}

// wWin is the multiplicative variance correction for a win. It must fall in (0, 1).
func wWin(t, e float64) (float64, error) {
	x := t - e
	v := vWin(t, e)
	w := v * (v + x)

	if !(w > 0 && w < 1) {
		return 0, ErrNumerical
	}

	return w, nil
}

func vDraw(t, e float64) float64 {
	absT := math.Abs(t)
	a, b := e-absT, -e-absT

	denom := cdf(a) - cdf(b)
	numer := pdf(b) - pdf(a)

	v := a
	if denom != 0 {
		v = numer / denom
	}

	if t < 0 {
		return -v
	}

	return v
}

func wDraw(t, e float64) (float64, error) {
	absT := math.Abs(t)
	a, b := e-absT, -e-absT

	denom := cdf(a) - cdf(b)
	if denom == 0 {
		return 0, ErrNumerical
	}

	v := vDraw(absT, e)
	w := v*v + (a*pdf(a)-b*pdf(b))/denom

	if !(w > 0 && w < 1) {
		return 0, ErrNumerical
	}

	return w, nil
}
