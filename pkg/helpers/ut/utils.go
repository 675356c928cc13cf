package ut

import "sync/atomic"

//CreateUint64IDGenerator returns a goroutine-safe generator of increasing ids, starting from 1.
func CreateUint64IDGenerator() func() uint64 {
	counter := new(uint64)
	return func() uint64 {
		return atomic.AddUint64(counter, 1)
	}
}
