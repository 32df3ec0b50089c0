// Package ordering computes sequence numbers for sibling content (stories, chapters, verses).
package ordering

// NextOrder returns the smallest positive order number not present in existing.
// Gaps left by deletions are reused before the sequence is extended.
func NextOrder(existing []int) int {
	taken := make(map[int]struct{}, len(existing))
	for _, n := range existing {
		if n > 0 {
			taken[n] = struct{}{}
		}
	}
	next := 1
	for {
		if _, ok := taken[next]; !ok {
			return next
		}
		next++
	}
}
