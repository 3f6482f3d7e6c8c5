package todo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository defines the interface for todo data access.
type Repository interface {
	Create(ctx context.Context, todo *Todo) error
	GetByID(ctx context.Context, id int64) (*Todo, error)
	// ListAccessible lists todos the user created plus todos shared with
	// any of the given teams, deduplicated, ascending by id.
	ListAccessible(ctx context.Context, userID int64, teamIDs []int64) ([]*Todo, error)
	Update(ctx context.Context, todo *Todo) error
	Delete(ctx context.Context, id int64) error

	// Team associations
	TeamIDs(ctx context.Context, todoID int64) ([]int64, error)
	TeamIDsForTodos(ctx context.Context, todoIDs []int64) (map[int64][]int64, error)
	ReplaceTeams(ctx context.Context, todoID int64, teamIDs []int64) error

	// Transact runs fn against a transaction-bound repository, rolling
	// back if fn returns an error.
	Transact(ctx context.Context, fn func(Repository) error) error
}

// repository implements Repository using GORM.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new todo repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Transact runs fn inside a database transaction.
func (r *repository) Transact(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

// Create creates a new todo.
func (r *repository) Create(ctx context.Context, todo *Todo) error {
	return r.db.WithContext(ctx).Create(todo).Error
}

// GetByID retrieves a todo by ID.
func (r *repository) GetByID(ctx context.Context, id int64) (*Todo, error) {
	var todo Todo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&todo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return &todo, nil
}

// ListAccessible lists todos created by the user or shared with any of
// the given teams, ascending by id.
func (r *repository) ListAccessible(ctx context.Context, userID int64, teamIDs []int64) ([]*Todo, error) {
	var todos []*Todo
	q := r.db.WithContext(ctx).Model(&Todo{})
	if len(teamIDs) == 0 {
		q = q.Where("created_by_user_id = ?", userID)
	} else {
		q = q.Where(
			"created_by_user_id = ? OR id IN (SELECT todo_id FROM todo_teams WHERE team_id IN ?)",
			userID, teamIDs,
		)
	}
	if err := q.Order("id ASC").Find(&todos).Error; err != nil {
		return nil, err
	}
	return todos, nil
}

// Update persists all fields of the todo, refreshing updated_at.
func (r *repository) Update(ctx context.Context, todo *Todo) error {
	return r.db.WithContext(ctx).Save(todo).Error
}

// Delete hard-deletes a todo and its team associations.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("todo_id = ?", id).Delete(&TeamLink{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Todo{}).Error
	})
}

// TeamIDs returns the ids of teams a todo is shared with, ascending.
func (r *repository) TeamIDs(ctx context.Context, todoID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&TeamLink{}).
		Where("todo_id = ?", todoID).
		Order("team_id ASC").
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TeamIDsForTodos returns the team ids for each of the given todos in a
// single query, keyed by todo id. Todos with no teams are absent.
func (r *repository) TeamIDsForTodos(ctx context.Context, todoIDs []int64) (map[int64][]int64, error) {
	result := make(map[int64][]int64, len(todoIDs))
	if len(todoIDs) == 0 {
		return result, nil
	}

	var links []TeamLink
	err := r.db.WithContext(ctx).
		Where("todo_id IN ?", todoIDs).
		Order("todo_id ASC, team_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		result[link.TodoID] = append(result[link.TodoID], link.TeamID)
	}
	return result, nil
}

// ReplaceTeams replaces a todo's team associations wholesale. The
// clear-then-add runs in one transaction per request.
func (r *repository) ReplaceTeams(ctx context.Context, todoID int64, teamIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("todo_id = ?", todoID).Delete(&TeamLink{}).Error; err != nil {
			return err
		}
		if len(teamIDs) == 0 {
			return nil
		}
		links := make([]TeamLink, len(teamIDs))
		for i, teamID := range teamIDs {
			links[i] = TeamLink{TodoID: todoID, TeamID: teamID}
		}
		return tx.Create(&links).Error
	})
}
