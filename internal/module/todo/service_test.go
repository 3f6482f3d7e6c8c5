package todo

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamtodo/server/internal/module/team"
	"github.com/teamtodo/server/internal/module/user"
	"go.uber.org/zap"
)

// fakeRepo is an in-memory todo Repository.
type fakeRepo struct {
	todos  map[int64]*Todo
	links  map[int64][]int64
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		todos: make(map[int64]*Todo),
		links: make(map[int64][]int64),
	}
}

func (f *fakeRepo) Create(_ context.Context, todo *Todo) error {
	f.nextID++
	todo.ID = f.nextID
	todo.CreatedAt = time.Now()
	todo.UpdatedAt = todo.CreatedAt
	copied := *todo
	f.todos[todo.ID] = &copied
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Todo, error) {
	if t, ok := f.todos[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, ErrTodoNotFound
}

func (f *fakeRepo) ListAccessible(_ context.Context, userID int64, teamIDs []int64) ([]*Todo, error) {
	memberOf := make(map[int64]struct{}, len(teamIDs))
	for _, id := range teamIDs {
		memberOf[id] = struct{}{}
	}

	var result []*Todo
	for _, t := range f.todos {
		visible := t.CreatedByID != nil && *t.CreatedByID == userID
		if !visible {
			for _, teamID := range f.links[t.ID] {
				if _, ok := memberOf[teamID]; ok {
					visible = true
					break
				}
			}
		}
		if visible {
			copied := *t
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeRepo) Update(_ context.Context, todo *Todo) error {
	if _, ok := f.todos[todo.ID]; !ok {
		return ErrTodoNotFound
	}
	todo.UpdatedAt = time.Now()
	copied := *todo
	f.todos[todo.ID] = &copied
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	delete(f.todos, id)
	delete(f.links, id)
	return nil
}

func (f *fakeRepo) TeamIDs(_ context.Context, todoID int64) ([]int64, error) {
	return append([]int64(nil), f.links[todoID]...), nil
}

func (f *fakeRepo) TeamIDsForTodos(_ context.Context, todoIDs []int64) (map[int64][]int64, error) {
	result := make(map[int64][]int64)
	for _, id := range todoIDs {
		if teams, ok := f.links[id]; ok {
			result[id] = append([]int64(nil), teams...)
		}
	}
	return result, nil
}

func (f *fakeRepo) ReplaceTeams(_ context.Context, todoID int64, teamIDs []int64) error {
	f.links[todoID] = append([]int64(nil), teamIDs...)
	return nil
}

func (f *fakeRepo) Transact(_ context.Context, fn func(Repository) error) error {
	return fn(f)
}

// fakeTeamRepo is an in-memory team.Repository.
type fakeTeamRepo struct {
	teams map[int64]*team.Team
}

func newFakeTeamRepo(ids ...int64) *fakeTeamRepo {
	f := &fakeTeamRepo{teams: make(map[int64]*team.Team)}
	for _, id := range ids {
		f.teams[id] = &team.Team{ID: id}
	}
	return f
}

func (f *fakeTeamRepo) Create(_ context.Context, t *team.Team) error {
	f.teams[t.ID] = t
	return nil
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id int64) (*team.Team, error) {
	if t, ok := f.teams[id]; ok {
		return t, nil
	}
	return nil, team.ErrTeamNotFound
}

func (f *fakeTeamRepo) ExistsByName(context.Context, string) (bool, error) { return false, nil }

func (f *fakeTeamRepo) ListByUser(context.Context, int64) ([]*team.Team, error) { return nil, nil }

func (f *fakeTeamRepo) AddMember(context.Context, int64, int64) error { return nil }

func (f *fakeTeamRepo) IsMember(context.Context, int64, int64) (bool, error) { return false, nil }

func (f *fakeTeamRepo) Transact(_ context.Context, fn func(team.Repository) error) error {
	return fn(f)
}

// fakeUserRepo is an in-memory user.Repository holding memberships.
type fakeUserRepo struct {
	memberships map[int64][]int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{memberships: make(map[int64][]int64)}
}

func (f *fakeUserRepo) Create(context.Context, *user.User) error { return nil }

func (f *fakeUserRepo) GetByID(context.Context, int64) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(context.Context, string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByUsername(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeUserRepo) TeamIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.memberships[userID], nil
}

type fixture struct {
	svc   *Service
	repo  *fakeRepo
	teams *fakeTeamRepo
	users *fakeUserRepo
	alice *user.User
	bob   *user.User
}

// newFixture builds a service with teams 1 and 2; alice belongs to team
// 1, bob to team 2.
func newFixture() *fixture {
	repo := newFakeRepo()
	teams := newFakeTeamRepo(1, 2)
	users := newFakeUserRepo()
	users.memberships[1] = []int64{1}
	users.memberships[2] = []int64{2}

	return &fixture{
		svc:   NewService(repo, teams, users, zap.NewNop()),
		repo:  repo,
		teams: teams,
		users: users,
		alice: &user.User{ID: 1, Username: "alice"},
		bob:   &user.User{ID: 2, Username: "bob"},
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with trimmed title and defaults", func(t *testing.T) {
		f := newFixture()

		todo, teamIDs, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "  buy milk  "})
		require.NoError(t, err)
		assert.Equal(t, "buy milk", todo.Title)
		assert.False(t, todo.Completed)
		assert.Equal(t, f.alice.ID, *todo.CreatedByID)
		assert.Empty(t, teamIDs)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		f := newFixture()

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "   "})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("assigns own teams", func(t *testing.T) {
		f := newFixture()

		_, teamIDs, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:   "shared",
			TeamIDs: []int64{1},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, teamIDs)
	})

	t.Run("rejects a team the user does not belong to", func(t *testing.T) {
		f := newFixture()

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:   "shared",
			TeamIDs: []int64{2},
		})
		assert.ErrorIs(t, err, ErrForeignTeam)
	})

	t.Run("rejects a team that does not exist", func(t *testing.T) {
		f := newFixture()

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:   "shared",
			TeamIDs: []int64{99},
		})
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})

	t.Run("accepts duration text", func(t *testing.T) {
		f := newFixture()
		text := "1h 30m"

		todo, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:        "timed",
			DurationText: &text,
		})
		require.NoError(t, err)
		require.NotNil(t, todo.DurationMillis)
		assert.Equal(t, int64(90*60*1000), *todo.DurationMillis)
	})

	t.Run("rejects invalid duration text", func(t *testing.T) {
		f := newFixture()
		text := "soon"

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:        "timed",
			DurationText: &text,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("rejects negative duration millis", func(t *testing.T) {
		f := newFixture()
		millis := int64(-5)

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:          "timed",
			DurationMillis: &millis,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("creator reads own todo", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "mine"})
		require.NoError(t, err)

		got, _, err := f.svc.Get(ctx, f.alice, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("team member reads shared todo", func(t *testing.T) {
		f := newFixture()
		f.users.memberships[2] = []int64{1, 2}
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "shared", TeamIDs: []int64{1}})
		require.NoError(t, err)

		got, teamIDs, err := f.svc.Get(ctx, f.bob, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, []int64{1}, teamIDs)
	})

	t.Run("inaccessible todo reads as not found", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "private"})
		require.NoError(t, err)

		_, _, err = f.svc.Get(ctx, f.bob, created.ID)
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})

	t.Run("missing todo reads as not found", func(t *testing.T) {
		f := newFixture()

		_, _, err := f.svc.Get(ctx, f.alice, 42)
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("team visibility follows membership", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "T1", TeamIDs: []int64{1}})
		require.NoError(t, err)

		todos, _, err := f.svc.List(ctx, f.bob)
		require.NoError(t, err)
		assert.Empty(t, todos)

		// bob joins team 1
		f.users.memberships[2] = []int64{1, 2}

		todos, teamsByTodo, err := f.svc.List(ctx, f.bob)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, created.ID, todos[0].ID)
		assert.Equal(t, []int64{1}, teamsByTodo[created.ID])
	})

	t.Run("returns union sorted by id", func(t *testing.T) {
		f := newFixture()
		f.users.memberships[2] = []int64{1, 2}

		shared, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "shared", TeamIDs: []int64{1}})
		require.NoError(t, err)
		own, _, err := f.svc.Create(ctx, f.bob, &CreateTodoRequest{Title: "own"})
		require.NoError(t, err)

		todos, _, err := f.svc.List(ctx, f.bob)
		require.NoError(t, err)
		require.Len(t, todos, 2)
		assert.Equal(t, shared.ID, todos[0].ID)
		assert.Equal(t, own.ID, todos[1].ID)
	})

	t.Run("user with no teams sees only own todos", func(t *testing.T) {
		f := newFixture()
		f.users.memberships[2] = nil

		_, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "other", TeamIDs: []int64{1}})
		require.NoError(t, err)
		own, _, err := f.svc.Create(ctx, f.bob, &CreateTodoRequest{Title: "own"})
		require.NoError(t, err)

		todos, _, err := f.svc.List(ctx, f.bob)
		require.NoError(t, err)
		require.Len(t, todos, 1)
		assert.Equal(t, own.ID, todos[0].ID)
	})
}

func TestService_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("resets omitted fields", func(t *testing.T) {
		f := newFixture()
		millis := int64(1000)
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{
			Title:          "before",
			Completed:      true,
			TeamIDs:        []int64{1},
			DurationMillis: &millis,
		})
		require.NoError(t, err)

		updated, teamIDs, err := f.svc.Replace(ctx, f.alice, created.ID, &ReplaceTodoRequest{Title: "after"})
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Title)
		assert.False(t, updated.Completed)
		assert.Nil(t, updated.DurationMillis)
		assert.Empty(t, teamIDs)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "before"})
		require.NoError(t, err)

		_, _, err = f.svc.Replace(ctx, f.alice, created.ID, &ReplaceTodoRequest{Title: " "})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("inaccessible todo updates as not found", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "private"})
		require.NoError(t, err)

		_, _, err = f.svc.Replace(ctx, f.bob, created.ID, &ReplaceTodoRequest{Title: "stolen"})
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})
}

func TestService_Patch(t *testing.T) {
	ctx := context.Background()

	t.Run("changes only supplied fields", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "before", TeamIDs: []int64{1}})
		require.NoError(t, err)

		completed := true
		updated, teamIDs, err := f.svc.Patch(ctx, f.alice, created.ID, &PatchTodoRequest{Completed: &completed})
		require.NoError(t, err)
		assert.Equal(t, "before", updated.Title)
		assert.True(t, updated.Completed)
		assert.Equal(t, []int64{1}, teamIDs)
	})

	t.Run("null teamIds leaves associations unchanged", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "shared", TeamIDs: []int64{1}})
		require.NoError(t, err)

		title := "renamed"
		_, teamIDs, err := f.svc.Patch(ctx, f.alice, created.ID, &PatchTodoRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, teamIDs)
	})

	t.Run("empty teamIds clears associations", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "shared", TeamIDs: []int64{1}})
		require.NoError(t, err)

		empty := []int64{}
		_, teamIDs, err := f.svc.Patch(ctx, f.alice, created.ID, &PatchTodoRequest{TeamIDs: &empty})
		require.NoError(t, err)
		assert.Empty(t, teamIDs)
	})

	t.Run("rejects foreign team on patch", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "mine"})
		require.NoError(t, err)

		foreign := []int64{2}
		_, _, err = f.svc.Patch(ctx, f.alice, created.ID, &PatchTodoRequest{TeamIDs: &foreign})
		assert.ErrorIs(t, err, ErrForeignTeam)
	})

	t.Run("inaccessible todo patches as not found", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "private"})
		require.NoError(t, err)

		completed := true
		_, _, err = f.svc.Patch(ctx, f.bob, created.ID, &PatchTodoRequest{Completed: &completed})
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})

	t.Run("patches duration via text", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "timed"})
		require.NoError(t, err)

		text := "2d"
		updated, _, err := f.svc.Patch(ctx, f.alice, created.ID, &PatchTodoRequest{DurationText: &text})
		require.NoError(t, err)
		require.NotNil(t, updated.DurationMillis)
		assert.Equal(t, int64(2*86400*1000), *updated.DurationMillis)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes own todo", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "done"})
		require.NoError(t, err)

		require.NoError(t, f.svc.Delete(ctx, f.alice, created.ID))

		_, _, err = f.svc.Get(ctx, f.alice, created.ID)
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})

	t.Run("inaccessible todo deletes as not found", func(t *testing.T) {
		f := newFixture()
		created, _, err := f.svc.Create(ctx, f.alice, &CreateTodoRequest{Title: "private"})
		require.NoError(t, err)

		err = f.svc.Delete(ctx, f.bob, created.ID)
		assert.ErrorIs(t, err, ErrTodoNotFound)
	})
}

func TestToResponse(t *testing.T) {
	now := time.Now()

	t.Run("computes dueAt from start and duration", func(t *testing.T) {
		start := now.Truncate(time.Millisecond)
		millis := int64(3600 * 1000)
		todo := &Todo{
			ID:             1,
			Title:          "timed",
			StartAt:        &start,
			DurationMillis: &millis,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		resp := todo.ToResponse([]int64{1})
		require.NotNil(t, resp.DueAtEpochMillis)
		assert.Equal(t, start.UnixMilli()+millis, *resp.DueAtEpochMillis)
		require.NotNil(t, resp.DurationText)
		assert.Equal(t, "1h", *resp.DurationText)
	})

	t.Run("omits scheduling when unset", func(t *testing.T) {
		todo := &Todo{ID: 1, Title: "plain", CreatedAt: now, UpdatedAt: now}

		resp := todo.ToResponse(nil)
		assert.Nil(t, resp.StartAtEpochMillis)
		assert.Nil(t, resp.DurationMillis)
		assert.Nil(t, resp.DueAtEpochMillis)
		assert.NotNil(t, resp.TeamIDs)
		assert.Empty(t, resp.TeamIDs)
	})
}
