package main

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/infrastructure/db/memory"
)

var seedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSeed_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	res, err := seed(ctx, store, "pw", seedNow)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Users == 0 || res.Tasks == 0 {
		t.Fatalf("expected users and tasks seeded, got %+v", res)
	}

	users, _ := store.LoadUsers(ctx)
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("pw")); err != nil {
		t.Fatalf("expected bcrypt hashed password: %v", err)
	}

	tasks, _ := store.LoadTasks(ctx)
	for i, task := range tasks {
		if task.ID != i+1 {
			t.Fatalf("expected sequential ids, task %d has id %d", i, task.ID)
		}
		if (task.Status == domain.StatusComplete) != (task.CompletionDate != nil) {
			t.Fatalf("task %d: completion date out of step with status %q", task.ID, task.Status)
		}
		if domain.FindUser(users, task.AssignedTo) == nil {
			t.Fatalf("task %d assigned to unknown user %q", task.ID, task.AssignedTo)
		}
	}
}

func TestSeed_KeepsExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	existing := []domain.User{{Username: "carol", Password: "x", Role: domain.RoleAdmin}}
	_ = store.SaveUsers(ctx, existing)

	res, err := seed(ctx, store, "pw", seedNow)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Users != 0 {
		t.Fatalf("users must not be reseeded, got %+v", res)
	}

	users, _ := store.LoadUsers(ctx)
	if len(users) != 1 || users[0].Username != "carol" {
		t.Fatalf("existing users changed: %+v", users)
	}
}
