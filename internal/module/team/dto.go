package team

// CreateTeamRequest is the team creation payload.
type CreateTeamRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest is the member addition payload.
type AddMemberRequest struct {
	Username string `json:"username"`
}

// Response is the wire representation of a team.
type Response struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	CreatedAtEpochMillis int64  `json:"createdAtEpochMillis"`
	UpdatedAtEpochMillis int64  `json:"updatedAtEpochMillis"`
}

// ToResponse converts a team to its wire representation.
func (t *Team) ToResponse() *Response {
	return &Response{
		ID:                   t.ID,
		Name:                 t.Name,
		CreatedAtEpochMillis: t.CreatedAt.UnixMilli(),
		UpdatedAtEpochMillis: t.UpdatedAt.UnixMilli(),
	}
}
