// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnsscore

import (
	"github.com/pkg/errors"
)

const arenaMinCap = 64

// arena is an owned growable array of records
// - len(buf) is the capacity, n the number of valid records (n <= len(buf))
// - Records are addressed by index; the backing array is never handed out
type arena[T any] struct {
	buf   []T
	n     int
	limit int // maximum number of records (0: unlimited)
}

// push appends v, growing the capacity by doubling
func (p *arena[T]) push(v T) (int, error) {
	if p.n >= len(p.buf) {
		c := len(p.buf) * 2
		if c < arenaMinCap {
			c = arenaMinCap
		}
		if p.limit > 0 && c > p.limit {
			c = p.limit
		}
		if c <= p.n {
			return -1, errors.Errorf("capacity limit exceeded (n=%d, limit=%d)", p.n, p.limit)
		}
		buf := make([]T, c)
		copy(buf, p.buf[:p.n])
		p.buf = buf
	}
	p.buf[p.n] = v
	p.n++
	return p.n - 1, nil
}

// items returns the valid records (only for use inside the store)
func (p *arena[T]) items() []T {
	return p.buf[:p.n]
}

// at returns a copy of the i-th record
func (p *arena[T]) at(i int) (T, bool) {
	var v T
	if i < 0 || p.n <= i {
		return v, false
	}
	return p.buf[i], true
}

// compact reallocates the backing array to exactly the first n records
func (p *arena[T]) compact(n int) {
	buf := make([]T, n)
	copy(buf, p.buf[:n])
	p.buf = buf
	p.n = n
}

// reset releases all records
func (p *arena[T]) reset() {
	p.buf = nil
	p.n = 0
}

func (p *arena[T]) len() int { return p.n }

func (p *arena[T]) cap() int { return len(p.buf) }
