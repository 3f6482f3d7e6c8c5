package team

import "errors"

// Module errors.
var (
	ErrNameRequired = errors.New("team name must not be blank")
	ErrNameTaken    = errors.New("team name exists")
	ErrTeamNotFound = errors.New("team not found")
	ErrNotMember    = errors.New("not a member")
)
