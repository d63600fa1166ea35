// Package slots turns a day's occupied calendar intervals into the start
// minutes offered to patients.
package slots

import (
	"errors"
	"math/rand"
	"sort"
)

// Interval is an occupied stretch of the calendar, in minutes since local midnight.
type Interval struct {
	StartMinute     int
	DurationMinutes int
}

// Policy bounds the offers for a single day.
type Policy struct {
	WorkStart       int
	WorkEnd         int
	MinGapMinutes   int
	MaxOffersPerDay int

	// AllowTruncatedTail offers a start whose gap window runs past WorkEnd.
	AllowTruncatedTail bool
}

var ErrInvalidPolicy = errors.New("invalid slot policy")

func (p Policy) Validate() error {
	if p.WorkStart < 0 || p.WorkStart >= p.WorkEnd || p.MinGapMinutes <= 0 || p.MaxOffersPerDay < 0 {
		return ErrInvalidPolicy
	}
	return nil
}

// Sampler supplies random permutations for capping. *rand.Rand satisfies it.
type Sampler interface {
	Perm(n int) []int
}

type globalSampler struct{}

func (globalSampler) Perm(n int) []int { return rand.Perm(n) }

// DefaultSampler is safe for concurrent use.
var DefaultSampler Sampler = globalSampler{}

// Candidates returns every offerable start minute, ascending, before capping.
func Candidates(occupied []Interval, p Policy) []int {
	if p.Validate() != nil {
		return nil
	}

	width := p.WorkEnd - p.WorkStart
	busy := make([]bool, width)
	for _, iv := range occupied {
		if iv.DurationMinutes <= 0 {
			continue
		}
		from := max(iv.StartMinute, p.WorkStart)
		to := min(iv.StartMinute+iv.DurationMinutes, p.WorkEnd)
		for m := from; m < to; m++ {
			busy[m-p.WorkStart] = true
		}
	}

	var out []int
	for m := p.WorkStart; m < p.WorkEnd; m++ {
		end := m + p.MinGapMinutes
		if end > p.WorkEnd {
			if !p.AllowTruncatedTail {
				break
			}
			end = p.WorkEnd
		}

		free := true
		for j := m; j < end; j++ {
			if busy[j-p.WorkStart] {
				free = false
				// resume right after the conflicting minute
				m = j
				break
			}
		}
		if !free {
			continue
		}

		out = append(out, m)
		m += p.MinGapMinutes - 1
	}
	return out
}

// Compute returns at most p.MaxOffersPerDay offers for the day. When the
// candidates exceed the cap, the earliest and latest are always kept and the
// rest are drawn uniformly without replacement from the interior.
func Compute(occupied []Interval, p Policy, sampler Sampler) []int {
	all := Candidates(occupied, p)
	limit := p.MaxOffersPerDay
	if len(all) <= limit {
		return all
	}
	if sampler == nil {
		sampler = DefaultSampler
	}

	switch limit {
	case 0:
		return []int{}
	case 1:
		return []int{all[0]}
	}

	interior := all[1 : len(all)-1]
	picked := make([]int, 0, limit)
	picked = append(picked, all[0], all[len(all)-1])
	for _, idx := range sampler.Perm(len(interior))[:limit-2] {
		picked = append(picked, interior[idx])
	}
	sort.Ints(picked)
	return picked
}
