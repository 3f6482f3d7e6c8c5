package todo

import "time"

// Todo is a task, optionally owned by a user and shared with teams.
// Team associations live in the todo_teams join table and are resolved
// by repository queries rather than loaded as an object graph.
type Todo struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	StartAt        *time.Time `json:"start_at,omitempty"`
	DurationMillis *int64     `json:"duration_millis,omitempty"`
	CreatedByID    *int64     `gorm:"column:created_by_user_id;index" json:"created_by_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Todo model.
func (Todo) TableName() string {
	return "todos"
}

// TeamLink associates a todo with a team.
type TeamLink struct {
	TodoID int64 `gorm:"primaryKey"`
	TeamID int64 `gorm:"primaryKey"`
}

// TableName specifies the table name for the TeamLink model.
func (TeamLink) TableName() string {
	return "todo_teams"
}
