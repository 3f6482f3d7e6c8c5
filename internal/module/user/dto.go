package user

// Response is the wire representation of a user.
type Response struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	TeamIDs  []int64 `json:"teamIds"`
}

// ToResponse converts a user and its team-id set to a Response.
func (u *User) ToResponse(teamIDs []int64) *Response {
	if teamIDs == nil {
		teamIDs = []int64{}
	}
	return &Response{
		ID:       u.ID,
		Username: u.Username,
		TeamIDs:  teamIDs,
	}
}
