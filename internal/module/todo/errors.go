package todo

import "errors"

// Module errors.
var (
	ErrTodoNotFound    = errors.New("todo not found")
	ErrTitleRequired   = errors.New("title must not be blank")
	ErrTeamNotFound    = errors.New("team does not exist")
	ErrForeignTeam     = errors.New("not a member of team")
	ErrInvalidDuration = errors.New("invalid duration")
)
