package battle

// PickResumable picks the one battle a campaign viewer should be routed back
// into: the oldest non-terminal battle, regardless of the display ordering
// the store returned (battles with equal creation times fall back to input
// order). The second return is the count of additional non-terminal battles
// beyond the chosen one; anything above zero means the store violated the
// one-open-battle-per-campaign invariant and the caller should flag it, but
// the selection itself stays deterministic.
func PickResumable(battles []Battle) (Battle, int, bool) {
	var picked Battle
	found := false
	extra := 0

	for _, b := range battles {
		if b.Status.Terminal() {
			continue
		}
		if !found {
			picked = b
			found = true
			continue
		}
		extra++
		if b.CreatedAt.Before(picked.CreatedAt) {
			picked = b
		}
	}

	return picked, extra, found
}
