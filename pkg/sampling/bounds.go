package sampling

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// oneMinusInvE is 1 - 1/e, the approximation ratio of greedy max coverage.
const oneMinusInvE = 0.6321205588285577

// logBinomial returns ln C(n, k).
func logBinomial(n, k int) float64 {
	if k <= 0 || k >= n {
		return 0
	}
	return combin.LogGeneralizedBinomial(float64(n), float64(k))
}

// ThetaPrime returns the global number of RR sets the x-th bound-search
// iteration requires. It doubles with every iteration.
func ThetaPrime(x int, epsilonPrime, l float64, k, n int) uint64 {
	nf := float64(n)
	v := (2 + 2.0/3.0*epsilonPrime) *
		(l*math.Log(nf) + logBinomial(n, k) + math.Log(math.Log2(nf))) *
		math.Exp2(float64(x)) / (epsilonPrime * epsilonPrime)
	return ceilCount(v)
}

// Theta returns the global number of RR sets the bulk pass requires given
// the lower bound lb on the optimal spread. It is 0 when lb is 0.
func Theta(epsilon, l float64, k int, lb float64, n int) uint64 {
	if lb <= 0 {
		return 0
	}
	nf := float64(n)
	alpha := math.Sqrt(l*math.Log(nf) + math.Ln2)
	beta := math.Sqrt(oneMinusInvE * (logBinomial(n, k) + l*math.Log(nf) + math.Ln2))
	lambda := 2 * nf * math.Pow(oneMinusInvE*alpha+beta, 2) / (epsilon * epsilon)
	return ceilCount(lambda / lb)
}

// adjustConfidence returns l(1 + 1/log2 n), or l unchanged when n < 2.
func adjustConfidence(l float64, n int) float64 {
	if n < 2 {
		return l
	}
	return l * (1 + 1/math.Log2(float64(n)))
}

func ceilCount(v float64) uint64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint64:
		return math.MaxUint64
	default:
		return uint64(math.Ceil(v))
	}
}
