// Package pipeline evaluates a short-circuiting chain of screening
// stages over precomputed indicator inputs and scans a bar range for
// the first or last index where the full chain passes.
package pipeline

import (
	"errors"

	"github.com/skpark33/bnf-stock/internal/domain"
)

var ErrNoStages = errors.New("pipeline: no stages configured")

// Predicate decides whether a single stage holds at bar index i.
// Implementations must fail closed when any required sample is
// undefined at i.
type Predicate func(in *Inputs, i int) bool

// Stage is one named gate in the chain.
type Stage struct {
	Name  string
	Check Predicate
}

// Pipeline is an ordered stage chain with a minimum history
// requirement. Indices below MinLookback are never evaluated.
type Pipeline struct {
	MinLookback int
	Stages      []Stage
}

// EvaluateAt runs the chain at index i. It returns how many stages
// passed before the first failure and whether the whole chain passed.
// An index inside the warm-up region reaches zero stages.
func (p *Pipeline) EvaluateAt(in *Inputs, i int) (stageReached int, passed bool) {
	if i < p.MinLookback || i >= in.Len() {
		return 0, false
	}
	for n, st := range p.Stages {
		if !st.Check(in, i) {
			return n, false
		}
	}
	return len(p.Stages), true
}

// ScanResult carries the outcome of a range scan plus per-stage
// progression counts for funnel diagnostics. StageCounts[k] is the
// number of evaluated indices that passed at least k+1 stages.
type ScanResult struct {
	Index       int
	Found       bool
	Checked     int
	StageCounts []int
}

// Scan evaluates every index in [from, to] and returns the first
// passing index under ScanForward or the last under ScanBackward.
// The funnel counts always cover the indices visited before the scan
// stops; a forward scan short-circuits on its first hit, a backward
// scan on its last.
func (p *Pipeline) Scan(in *Inputs, from, to int, dir domain.ScanDirection) ScanResult {
	res := ScanResult{Index: -1, StageCounts: make([]int, len(p.Stages))}
	if len(p.Stages) == 0 || in.Len() == 0 {
		return res
	}
	if from < 0 {
		from = 0
	}
	if to >= in.Len() {
		to = in.Len() - 1
	}
	if from > to {
		return res
	}

	visit := func(i int) bool {
		reached, passed := p.EvaluateAt(in, i)
		res.Checked++
		for k := 0; k < reached; k++ {
			res.StageCounts[k]++
		}
		if passed {
			res.Index = i
			res.Found = true
		}
		return passed
	}

	if dir == domain.ScanBackward {
		for i := to; i >= from; i-- {
			if visit(i) {
				break
			}
		}
		return res
	}
	for i := from; i <= to; i++ {
		if visit(i) {
			break
		}
	}
	return res
}
