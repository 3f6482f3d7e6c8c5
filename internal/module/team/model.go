package team

import "time"

// Team represents a named team. Membership lives in the team_members
// join table and is resolved through repository queries.
type Team struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Team) TableName() string {
	return "teams"
}

// Member represents a team membership. The composite primary key makes
// membership a set: inserting an existing pair is a no-op.
type Member struct {
	TeamID   int64     `json:"team_id" gorm:"primaryKey"`
	UserID   int64     `json:"user_id" gorm:"primaryKey"`
	JoinedAt time.Time `json:"joined_at"`
}

// TableName returns the database table name.
func (Member) TableName() string {
	return "team_members"
}
