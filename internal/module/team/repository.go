package team

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for team data access.
type Repository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id int64) (*Team, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*Team, error)
	// AddMember adds a user to a team. Adding an existing member is a
	// no-op (membership is a set).
	AddMember(ctx context.Context, teamID, userID int64) error
	IsMember(ctx context.Context, teamID, userID int64) (bool, error)

	// Transact runs fn against a transaction-bound repository, rolling
	// back if fn returns an error.
	Transact(ctx context.Context, fn func(Repository) error) error
}

// repository implements Repository using GORM.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new team repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Transact runs fn inside a database transaction.
func (r *repository) Transact(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// Create creates a new team.
func (r *repository) Create(ctx context.Context, team *Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

// GetByID retrieves a team by ID.
func (r *repository) GetByID(ctx context.Context, id int64) (*Team, error) {
	var team Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

// ExistsByName reports whether a team with the exact name exists.
func (r *repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Team{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser lists all teams a user belongs to, ascending by id.
func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Team, error) {
	var teams []*Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.id ASC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// AddMember adds a member to a team, ignoring duplicates.
func (r *repository) AddMember(ctx context.Context, teamID, userID int64) error {
	member := &Member{
		TeamID:   teamID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member).Error
}

// IsMember reports whether the user belongs to the team.
func (r *repository) IsMember(ctx context.Context, teamID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
