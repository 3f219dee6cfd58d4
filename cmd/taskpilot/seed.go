package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/identity"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/infrastructure/config"
	"github.com/atomm/taskpilot/pkg/logger"
)

func seedCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and tasks into an empty store",
		Long: `Load demo users and tasks into the configured record store.

Collections that already hold records are left alone.

Examples:
  taskpilot seed
  STORE_DRIVER=sqlite taskpilot seed --password s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: true})

			store, closeStore, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeStore(context.Background())

			res, err := seed(ctx, store, password, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d tasks\n", res.Users, res.Tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "changeme", "password for every demo user")

	return cmd
}

type seedResult struct {
	Users int
	Tasks int
}

// seed fills the users and tasks collections when they are empty.
func seed(ctx context.Context, store ports.RecordStore, password string, now time.Time) (seedResult, error) {
	var res seedResult

	users, err := store.LoadUsers(ctx)
	if err != nil {
		return res, err
	}
	if len(users) == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return res, fmt.Errorf("hash password: %w", err)
		}
		users = demoUsers(string(hash))
		if err := store.SaveUsers(ctx, users); err != nil {
			return res, err
		}
		res.Users = len(users)
	}

	tasks, err := store.LoadTasks(ctx)
	if err != nil {
		return res, err
	}
	if len(tasks) == 0 {
		tasks = demoTasks(now)
		if err := store.SaveTasks(ctx, tasks); err != nil {
			return res, err
		}
		res.Tasks = len(tasks)
	}
	return res, nil
}

func demoUsers(passwordHash string) []domain.User {
	return []domain.User{
		{Username: "admin", Password: passwordHash, Role: domain.RoleAdmin, DisplayName: "Administrator"},
		{Username: "maria", Password: passwordHash, Role: domain.RoleManager, Team: "Engineering", DisplayName: "Maria Lopez"},
		{Username: "alex", Password: passwordHash, Role: domain.RoleEmployee, Team: "Engineering", DisplayName: "Alex Kim"},
		{Username: "sam", Password: passwordHash, Role: domain.RoleEmployee, Team: "Engineering", DisplayName: "Sam Patel"},
		{Username: "jordan", Password: passwordHash, Role: domain.RoleManager, Team: "Design", DisplayName: "Jordan Lee"},
		{Username: "riley", Password: passwordHash, Role: domain.RoleEmployee, Team: "Design", DisplayName: "Riley Chen"},
	}
}

func demoTasks(now time.Time) []domain.Task {
	day := 24 * time.Hour
	due := func(days int) *time.Time {
		t := now.Truncate(day).Add(time.Duration(days) * day)
		return &t
	}

	specs := []struct {
		title, description, to, by, team string
		priority                         domain.Priority
		status                           domain.TaskStatus
		dueIn                            int
	}{
		{"Set up CI pipeline", "Build and test on every push", "alex", "maria", "Engineering", domain.PriorityHigh, domain.StatusInProgress, 3},
		{"Write API docs", "Document the task endpoints", "sam", "maria", "Engineering", domain.PriorityMedium, domain.StatusPending, 7},
		{"Fix login timeout", "Sessions expire too early", "alex", "maria", "Engineering", domain.PriorityHigh, domain.StatusComplete, -1},
		{"Dashboard mockups", "Manager and employee views", "riley", "jordan", "Design", domain.PriorityMedium, domain.StatusInProgress, 5},
		{"Icon refresh", "Replace legacy icon set", "riley", "jordan", "Design", domain.PriorityLow, domain.StatusBlocked, 14},
	}

	tasks := make([]domain.Task, 0, len(specs))
	ids := make([]int, 0, len(specs))
	for _, s := range specs {
		id := identity.NextInt(ids)
		ids = append(ids, id)

		t := domain.Task{
			ID:          id,
			Title:       s.title,
			Description: s.description,
			AssignedTo:  s.to,
			AssignedBy:  s.by,
			DueDate:     due(s.dueIn),
			Priority:    s.priority,
			Team:        s.team,
			CreatedDate: now.Add(-2 * day),
		}
		t.SetStatus(s.status, now.Add(-day))
		tasks = append(tasks, t)
	}
	return tasks
}
