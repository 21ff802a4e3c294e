package slot

// FreeSlots returns [1,total] minus occupied in ascending order.
func FreeSlots(total int, occupied []int) []int {
	if total <= 0 {
		return nil
	}
	taken := make(map[int]struct{}, len(occupied))
	for _, n := range occupied {
		taken[n] = struct{}{}
	}
	out := make([]int, 0, max(total-len(taken), 0))
	for n := 1; n <= total; n++ {
		if _, ok := taken[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
