package services

import "math/rand/v2"

const golden = 0x9e3779b97f4a7c15

// slotRand returns the generator for one population slot of one
// generation. Streams depend only on (seed, generation, slot), so results
// do not depend on how breeding is scheduled across workers.
// Generation 0 is the initial population.
func slotRand(seed uint64, generation, slot int) *rand.Rand {
	return rand.New(rand.NewPCG(seed^(uint64(generation)*golden), uint64(slot)+1))
}
