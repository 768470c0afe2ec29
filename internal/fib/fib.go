// Package fib holds small numeric callables used as table bodies in the
// demo and as benchmark baselines for generated code.
package fib

import "sync"

// Naive returns the n-th Fibonacci number with fib(0) = fib(1) = 1.
func Naive(n uint64) uint64 {
	if n < 2 {
		return 1
	}
	a, b := uint64(1), uint64(1)
	for i := uint64(2); i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// Cache memoizes Fibonacci numbers. It is safe for concurrent use; share
// one by passing it to the callers that need it.
type Cache struct {
	mu   sync.Mutex
	memo []uint64 // memo[i] holds fib(i+2)
}

func (c *Cache) Get(n uint64) uint64 {
	if n < 2 {
		return 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for uint64(len(c.memo)) < n-1 {
		k := len(c.memo)
		prev, prev2 := uint64(1), uint64(1)
		if k >= 1 {
			prev = c.memo[k-1]
		}
		if k >= 2 {
			prev2 = c.memo[k-2]
		}
		c.memo = append(c.memo, prev+prev2)
	}
	return c.memo[n-2]
}

// Noop does nothing. It measures the cost of a call.
func Noop() {}
