package sampling

import "time"

// Iteration records one round of the bound search.
type Iteration struct {
	X          int
	ThetaPrime uint64 // global requirement of this round
	Delta      int    // sets sampled locally this round
	PoolSize   int
	Coverage   float64
	Generate   time.Duration
	Select     time.Duration
}

// Record describes one run. It is observational only; nothing in the
// algorithm reads it back.
type Record struct {
	RunID     string
	Rank      int
	WorldSize int
	Workers   int
	Model     string
	K         int
	Epsilon   float64
	L         float64 // after adjustment

	Iterations []Iteration
	LowerBound float64
	Theta      uint64
	PoolSize   int

	Seeds    []uint32
	Coverage float64

	ThetaEstimation        time.Duration
	GenerateRRSets         time.Duration
	FindMostInfluentialSet time.Duration
	Total                  time.Duration
}
