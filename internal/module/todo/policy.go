package todo

// CanAccess decides whether a user may read or mutate a todo: the user
// must be its creator or share at least one team with it. Applied
// uniformly to get, list, update, and delete.
func CanAccess(userID int64, t *Todo, todoTeamIDs, userTeamIDs []int64) bool {
	if t.CreatedByID != nil && *t.CreatedByID == userID {
		return true
	}
	return intersects(todoTeamIDs, userTeamIDs)
}

func intersects(a, b []int64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[int64]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
