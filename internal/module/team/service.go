package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/teamtodo/server/internal/module/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service provides team and membership business logic.
type Service struct {
	repo   Repository
	users  user.Repository
	logger *zap.Logger
}

// NewService creates a new team service.
func NewService(repo Repository, users user.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// CreateTeam creates a new team and enrolls the creator as its first
// member. Both writes run in one transaction; the unique index on
// teams.name settles concurrent creations with the same name.
func (s *Service) CreateTeam(ctx context.Context, creatorID int64, req *CreateTeamRequest) (*Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	taken, err := s.repo.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check team name: %w", err)
	}
	if taken {
		return nil, ErrNameTaken
	}

	team := &Team{Name: name}
	err = s.repo.Transact(ctx, func(txRepo Repository) error {
		if err := txRepo.Create(ctx, team); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrNameTaken
			}
			return fmt.Errorf("create team: %w", err)
		}
		return txRepo.AddMember(ctx, team.ID, creatorID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team created",
		zap.Int64("team_id", team.ID),
		zap.Int64("creator_id", creatorID),
		zap.String("name", team.Name),
	)

	return team, nil
}

// ListMyTeams lists the teams the user belongs to, ascending by id.
func (s *Service) ListMyTeams(ctx context.Context, userID int64) ([]*Team, error) {
	return s.repo.ListByUser(ctx, userID)
}

// AddMember adds the named user to a team. Only existing members may add
// others; adding someone who is already a member is a no-op.
func (s *Service) AddMember(ctx context.Context, teamID, requesterID int64, username string) (*Team, error) {
	team, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	member, err := s.repo.IsMember(ctx, teamID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}

	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.repo.AddMember(ctx, teamID, target.ID); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	s.logger.Info("member added",
		zap.Int64("team_id", teamID),
		zap.Int64("user_id", target.ID),
		zap.Int64("added_by", requesterID),
	)

	return team, nil
}
