// Package greeks prices European options with Black-Scholes and computes
// the standard sensitivity set. The pricing functions are pure; the
// Service sweeps the price store and writes the results back.
package greeks

import "math"

// Result is the output of one Black-Scholes evaluation.
type Result struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64 // daily decay (annual theta / 365)
	Vega  float64 // per 1% volatility change
	Rho   float64
}

// Input names the five Black-Scholes parameters plus the option side.
type Input struct {
	Spot       float64 // S
	Strike     float64 // K
	TimeToExp  float64 // T, in years
	RiskFree   float64 // r, continuously compounded
	Volatility float64 // sigma, as a fraction
	IsCall     bool
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func d1(s, k, t, r, sigma float64) float64 {
	return (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
}

// Calculate evaluates price and all greeks for one option. A degenerate
// option (expired, or zero volatility) yields the zero Result.
func Calculate(in Input) Result {
	if in.TimeToExp <= 0 || in.Volatility <= 0 || in.Spot <= 0 || in.Strike <= 0 {
		return Result{}
	}

	s, k, t, r, sigma := in.Spot, in.Strike, in.TimeToExp, in.RiskFree, in.Volatility
	sqrtT := math.Sqrt(t)
	dOne := d1(s, k, t, r, sigma)
	dTwo := dOne - sigma*sqrtT

	nd1 := normCDF(dOne)
	nd2 := normCDF(dTwo)
	pdf1 := normPDF(dOne)
	expRT := math.Exp(-r * t)

	var res Result
	if in.IsCall {
		res.Price = s*nd1 - k*expRT*nd2
		res.Delta = nd1
		res.Rho = k * t * expRT * nd2
		res.Theta = -s*pdf1*sigma/(2*sqrtT) - r*k*expRT*nd2
	} else {
		nmd1 := normCDF(-dOne)
		nmd2 := normCDF(-dTwo)
		res.Price = k*expRT*nmd2 - s*nmd1
		res.Delta = nd1 - 1
		res.Rho = -k * t * expRT * nmd2
		res.Theta = -s*pdf1*sigma/(2*sqrtT) + r*k*expRT*nmd2
	}

	res.Gamma = pdf1 / (s * sigma * sqrtT)
	res.Vega = s * sqrtT * pdf1 / 100
	res.Theta /= 365

	return res
}

// TheoPrice evaluates only the theoretical price. Degenerate options
// return intrinsic value, the natural limit of the formula.
func TheoPrice(in Input) float64 {
	if in.TimeToExp <= 0 || in.Volatility <= 0 {
		if in.IsCall {
			return math.Max(in.Spot-in.Strike, 0)
		}
		return math.Max(in.Strike-in.Spot, 0)
	}
	return Calculate(in).Price
}
