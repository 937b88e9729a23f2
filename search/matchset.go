package search

import (
	"rekit/process"
)

// Match is one candidate address and the bytes it held when last read.
type Match struct {
	Address process.ProcessMemoryAddress
	Value   []byte
}

// MatchSet is the ordered result of a scan. Addresses are unique and ascending.
type MatchSet []Match

// Addresses returns the candidate addresses in order.
func (ms MatchSet) Addresses() []process.ProcessMemoryAddress {
	out := make([]process.ProcessMemoryAddress, len(ms))
	for i, m := range ms {
		out[i] = m.Address
	}
	return out
}

// FromAddresses builds a match set with no captured values.
func FromAddresses(addrs []process.ProcessMemoryAddress) MatchSet {
	ms := make(MatchSet, len(addrs))
	for i, a := range addrs {
		ms[i] = Match{Address: a}
	}
	return ms
}
