package simulation

// DeriveSeed mixes the scenario seed with a replication index using the
// splitmix64 finalizer. Neighbouring indices get unrelated streams.
func DeriveSeed(base uint64, index int) uint64 {
	z := base + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
