package data

// UnreadCounts maps a participant id (hex) to the number of messages that
// participant has not read yet. A missing entry, or a nil map, counts as 0.
type UnreadCounts map[string]int

// Get returns the counter for userID. Safe on a nil map.
func (u UnreadCounts) Get(userID string) int {
	return u[userID]
}

// Increment adds one to userID's counter, allocating the map if needed.
func (u *UnreadCounts) Increment(userID string) {
	if *u == nil {
		*u = UnreadCounts{}
	}
	(*u)[userID]++
}

// Reset sets userID's counter to 0. Resetting twice is the same as once.
func (u *UnreadCounts) Reset(userID string) {
	if *u == nil {
		*u = UnreadCounts{}
	}
	(*u)[userID] = 0
}

// Clone returns an independent copy; a nil map clones to an empty one.
func (u UnreadCounts) Clone() UnreadCounts {
	out := make(UnreadCounts, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}
