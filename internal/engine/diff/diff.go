// Package diff partitions the issues of two builds into new, fixed and
// unchanged.
package diff

import (
	"checkdelta/internal/core/model"
)

// Fingerprinter resolves the fingerprint of an issue. ok is false when the
// issue cannot be fingerprinted.
type Fingerprinter interface {
	Fingerprint(issue model.Issue) (string, bool)
}

// Options selects how each side is fingerprinted. A nil Fingerprinter falls
// back to the fingerprint stored on the issue, if any.
type Options struct {
	Current   Fingerprinter
	Reference Fingerprinter
}

// Match pairs a current issue with the reference issue it continues.
type Match struct {
	Current       model.Issue
	Reference     model.Issue
	ByFingerprint bool
}

// Result is the partition of one comparison. Unchanged holds the current
// side of every match. Slices keep input order.
type Result struct {
	New       []model.Issue
	Fixed     []model.Issue
	Unchanged []model.Issue
	Matches   []Match
}

type fingerprintKey struct {
	fileName    string
	ruleType    string
	fingerprint string
}

// Compute compares current with reference. Issues equal by key are matched
// first; the rest are matched on file, rule type and fingerprint, choosing
// the closest line and then the earliest reference issue.
func Compute(current, reference []model.Issue, opts Options) Result {
	refMatched := make([]bool, len(reference))
	curMatch := make([]int, len(current))
	byFingerprint := make([]bool, len(current))
	for i := range curMatch {
		curMatch[i] = -1
	}

	exact := make(map[model.Key][]int, len(reference))
	for j, issue := range reference {
		k := issue.Key()
		exact[k] = append(exact[k], j)
	}
	for i, issue := range current {
		k := issue.Key()
		queue := exact[k]
		if len(queue) == 0 {
			continue
		}
		curMatch[i] = queue[0]
		refMatched[queue[0]] = true
		exact[k] = queue[1:]
	}

	candidates := make(map[fingerprintKey][]int)
	for j, issue := range reference {
		if refMatched[j] {
			continue
		}
		fp, ok := fingerprintOf(opts.Reference, issue)
		if !ok {
			continue
		}
		k := fingerprintKey{issue.FileName, issue.Type, fp}
		candidates[k] = append(candidates[k], j)
	}
	if len(candidates) > 0 {
		for i, issue := range current {
			if curMatch[i] >= 0 {
				continue
			}
			fp, ok := fingerprintOf(opts.Current, issue)
			if !ok {
				continue
			}
			k := fingerprintKey{issue.FileName, issue.Type, fp}
			pos := closest(reference, candidates[k], issue.LineStart)
			if pos < 0 {
				continue
			}
			j := candidates[k][pos]
			candidates[k] = append(candidates[k][:pos:pos], candidates[k][pos+1:]...)
			curMatch[i] = j
			refMatched[j] = true
			byFingerprint[i] = true
		}
	}

	var res Result
	for i, issue := range current {
		if curMatch[i] < 0 {
			res.New = append(res.New, issue)
			continue
		}
		res.Unchanged = append(res.Unchanged, issue)
		res.Matches = append(res.Matches, Match{
			Current:       issue,
			Reference:     reference[curMatch[i]],
			ByFingerprint: byFingerprint[i],
		})
	}
	for j, issue := range reference {
		if !refMatched[j] {
			res.Fixed = append(res.Fixed, issue)
		}
	}
	return res
}

func fingerprintOf(f Fingerprinter, issue model.Issue) (string, bool) {
	if f == nil {
		return issue.Fingerprint, issue.HasFingerprint()
	}
	return f.Fingerprint(issue)
}

// closest returns the position in indices of the reference issue nearest to
// line, or -1 when indices is empty. Earlier entries win ties.
func closest(reference []model.Issue, indices []int, line int) int {
	best, bestDistance := -1, 0
	for pos, j := range indices {
		d := reference[j].LineStart - line
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDistance {
			best, bestDistance = pos, d
		}
	}
	return best
}
