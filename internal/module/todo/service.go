package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtodo/server/internal/module/team"
	"github.com/teamtodo/server/internal/module/user"
	"github.com/teamtodo/server/internal/utils/durationtext"
	"go.uber.org/zap"
)

// Service provides todo business logic: validation, access policy
// enforcement, and team-association management.
type Service struct {
	repo   Repository
	teams  team.Repository
	users  user.Repository
	logger *zap.Logger
}

// NewService creates a new todo service.
func NewService(repo Repository, teams team.Repository, users user.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		teams:  teams,
		users:  users,
		logger: logger,
	}
}

// Create creates a todo owned by the user. Requested team associations
// must be a subset of the user's own memberships.
func (s *Service) Create(ctx context.Context, u *user.User, req *CreateTodoRequest) (*Todo, []int64, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, ErrTitleRequired
	}

	userTeams, err := s.users.TeamIDs(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load memberships: %w", err)
	}

	teamIDs := dedupe(req.TeamIDs)
	if err := s.validateTeamAssignment(ctx, teamIDs, userTeams); err != nil {
		return nil, nil, err
	}

	duration, err := resolveDuration(req.DurationMillis, req.DurationText)
	if err != nil {
		return nil, nil, err
	}

	creatorID := u.ID
	todo := &Todo{
		Title:          title,
		Completed:      req.Completed,
		StartAt:        millisToTime(req.StartAtEpochMillis),
		DurationMillis: duration,
		CreatedByID:    &creatorID,
	}

	err = s.repo.Transact(ctx, func(txRepo Repository) error {
		if err := txRepo.Create(ctx, todo); err != nil {
			return fmt.Errorf("create todo: %w", err)
		}
		return txRepo.ReplaceTeams(ctx, todo.ID, teamIDs)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("todo created",
		zap.Int64("todo_id", todo.ID),
		zap.Int64("user_id", u.ID),
		zap.Int("team_count", len(teamIDs)),
	)

	return todo, teamIDs, nil
}

// Get returns a todo if the user may access it, 404 otherwise. The same
// not-found error covers both absent and inaccessible todos so callers
// cannot probe for existence.
func (s *Service) Get(ctx context.Context, u *user.User, id int64) (*Todo, []int64, error) {
	return s.loadAccessible(ctx, u, id)
}

// List returns all todos the user created or that are shared with one
// of their teams, ascending by id, with each todo's team ids.
func (s *Service) List(ctx context.Context, u *user.User) ([]*Todo, map[int64][]int64, error) {
	userTeams, err := s.users.TeamIDs(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load memberships: %w", err)
	}

	todos, err := s.repo.ListAccessible(ctx, u.ID, userTeams)
	if err != nil {
		return nil, nil, fmt.Errorf("list todos: %w", err)
	}

	ids := make([]int64, len(todos))
	for i, t := range todos {
		ids[i] = t.ID
	}
	teamsByTodo, err := s.repo.TeamIDsForTodos(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load todo teams: %w", err)
	}

	return todos, teamsByTodo, nil
}

// Replace applies full-update semantics: title is required, and omitted
// fields reset to defaults (completed false, teams and scheduling
// cleared) rather than being merged.
func (s *Service) Replace(ctx context.Context, u *user.User, id int64, req *ReplaceTodoRequest) (*Todo, []int64, error) {
	todo, _, err := s.loadAccessible(ctx, u, id)
	if err != nil {
		return nil, nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, ErrTitleRequired
	}

	userTeams, err := s.users.TeamIDs(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load memberships: %w", err)
	}

	teamIDs := dedupe(req.TeamIDs)
	if err := s.validateTeamAssignment(ctx, teamIDs, userTeams); err != nil {
		return nil, nil, err
	}

	duration, err := resolveDuration(req.DurationMillis, req.DurationText)
	if err != nil {
		return nil, nil, err
	}

	todo.Title = title
	todo.Completed = req.Completed
	todo.StartAt = millisToTime(req.StartAtEpochMillis)
	todo.DurationMillis = duration

	if err := s.saveWithTeams(ctx, todo, teamIDs); err != nil {
		return nil, nil, err
	}

	return todo, teamIDs, nil
}

// Patch applies partial-update semantics: only supplied fields change.
// A null or absent teamIds leaves associations untouched; an empty list
// clears them.
func (s *Service) Patch(ctx context.Context, u *user.User, id int64, req *PatchTodoRequest) (*Todo, []int64, error) {
	todo, teamIDs, err := s.loadAccessible(ctx, u, id)
	if err != nil {
		return nil, nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, nil, ErrTitleRequired
		}
		todo.Title = title
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.StartAtEpochMillis != nil {
		todo.StartAt = millisToTime(req.StartAtEpochMillis)
	}
	if req.DurationMillis != nil || req.DurationText != nil {
		duration, err := resolveDuration(req.DurationMillis, req.DurationText)
		if err != nil {
			return nil, nil, err
		}
		todo.DurationMillis = duration
	}

	if req.TeamIDs != nil {
		userTeams, err := s.users.TeamIDs(ctx, u.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("load memberships: %w", err)
		}
		requested := dedupe(*req.TeamIDs)
		if err := s.validateTeamAssignment(ctx, requested, userTeams); err != nil {
			return nil, nil, err
		}
		teamIDs = requested
	}

	if err := s.saveWithTeams(ctx, todo, teamIDs); err != nil {
		return nil, nil, err
	}

	return todo, teamIDs, nil
}

// Delete hard-deletes a todo the user may access.
func (s *Service) Delete(ctx context.Context, u *user.User, id int64) error {
	todo, _, err := s.loadAccessible(ctx, u, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, todo.ID); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	s.logger.Info("todo deleted",
		zap.Int64("todo_id", todo.ID),
		zap.Int64("user_id", u.ID),
	)
	return nil
}

// loadAccessible fetches a todo and enforces the access policy,
// collapsing both absence and inaccessibility into ErrTodoNotFound.
func (s *Service) loadAccessible(ctx context.Context, u *user.User, id int64) (*Todo, []int64, error) {
	todo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	todoTeams, err := s.repo.TeamIDs(ctx, todo.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load todo teams: %w", err)
	}
	userTeams, err := s.users.TeamIDs(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load memberships: %w", err)
	}

	if !CanAccess(u.ID, todo, todoTeams, userTeams) {
		return nil, nil, ErrTodoNotFound
	}
	return todo, todoTeams, nil
}

// saveWithTeams persists the todo and replaces its team associations in
// one transaction, refreshing updated_at.
func (s *Service) saveWithTeams(ctx context.Context, todo *Todo, teamIDs []int64) error {
	todo.UpdatedAt = time.Now()
	return s.repo.Transact(ctx, func(txRepo Repository) error {
		if err := txRepo.Update(ctx, todo); err != nil {
			return fmt.Errorf("update todo: %w", err)
		}
		return txRepo.ReplaceTeams(ctx, todo.ID, teamIDs)
	})
}

// validateTeamAssignment checks that every requested team id is one of
// the user's own memberships. A team the user does not belong to is
// forbidden; an id that matches no team at all is a validation error.
func (s *Service) validateTeamAssignment(ctx context.Context, requested, userTeams []int64) error {
	if len(requested) == 0 {
		return nil
	}

	memberOf := make(map[int64]struct{}, len(userTeams))
	for _, id := range userTeams {
		memberOf[id] = struct{}{}
	}

	for _, id := range requested {
		if _, ok := memberOf[id]; ok {
			continue
		}
		if _, err := s.teams.GetByID(ctx, id); err != nil {
			if errors.Is(err, team.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("check team: %w", err)
		}
		return ErrForeignTeam
	}
	return nil
}

// resolveDuration picks the duration from either representation.
// Explicit milliseconds win over duration text when both are supplied.
func resolveDuration(millis *int64, text *string) (*int64, error) {
	if millis != nil {
		if *millis < 0 {
			return nil, ErrInvalidDuration
		}
		v := *millis
		return &v, nil
	}
	if text != nil {
		parsed, ok := durationtext.Parse(*text)
		if !ok {
			return nil, ErrInvalidDuration
		}
		return &parsed, nil
	}
	return nil, nil
}

func millisToTime(millis *int64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(*millis).UTC()
	return &t
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
