package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
	"mintsniper/internal/storage/memory"
)

func validTask(owner, name string) *domain.Task {
	return &domain.Task{
		OwnerID:         owner,
		Name:            name,
		Platform:        domain.PlatformTelegram,
		ChannelID:       "C1",
		BuyAmountSOL:    0.25,
		SlippagePercent: 10,
		WalletLabel:     "main",
		Enabled:         true,
		CreatedAt:       1,
		UpdatedAt:       1,
	}
}

func TestRegistryCreateRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	r := NewTaskRegistry(memory.NewTaskStore(), zerolog.Nop())

	task := validTask("owner-1", "alpha")
	if err := r.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.TaskID == "" {
		t.Fatal("Create did not assign a task id")
	}

	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].TaskID != task.TaskID {
		t.Fatalf("Snapshot = %v, want the created task", snap)
	}
}

func TestRegistryCreateValidation(t *testing.T) {
	ctx := context.Background()
	r := NewTaskRegistry(memory.NewTaskStore(), zerolog.Nop())

	cases := map[string]*domain.Task{
		"missing owner": func() *domain.Task { t := validTask("", "a"); return t }(),
		"missing name":  func() *domain.Task { t := validTask("o", ""); return t }(),
		"bad platform": func() *domain.Task {
			t := validTask("o", "a")
			t.Platform = "SMOKE_SIGNALS"
			return t
		}(),
		"zero amount": func() *domain.Task {
			t := validTask("o", "a")
			t.BuyAmountSOL = 0
			return t
		}(),
		"slippage range": func() *domain.Task {
			t := validTask("o", "a")
			t.SlippagePercent = 120
			return t
		}(),
	}

	for name, task := range cases {
		if err := r.Create(ctx, task); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("%s: Create = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestRegistryInformOnlyAllowsZeroAmount(t *testing.T) {
	ctx := context.Background()
	r := NewTaskRegistry(memory.NewTaskStore(), zerolog.Nop())

	task := validTask("owner-1", "watcher")
	task.InformOnly = true
	task.BuyAmountSOL = 0
	if err := r.Create(ctx, task); err != nil {
		t.Fatalf("Create inform-only: %v", err)
	}
}

func TestRegistryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewTaskRegistry(memory.NewTaskStore(), zerolog.Nop())

	task := validTask("owner-1", "alpha")
	if err := r.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	task.BuyAmountSOL = 1.5
	if err := r.Update(ctx, task); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := r.Snapshot()[0].BuyAmountSOL; got != 1.5 {
		t.Fatalf("snapshot amount = %v, want 1.5", got)
	}

	if err := r.Delete(ctx, "owner-1", task.TaskID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := len(r.Snapshot()); got != 0 {
		t.Fatalf("snapshot size after delete = %d, want 0", got)
	}

	if err := r.Delete(ctx, "owner-1", task.TaskID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Delete absent = %v, want ErrNotFound", err)
	}
}

func TestRegistryDuplicateNamePerOwner(t *testing.T) {
	ctx := context.Background()
	r := NewTaskRegistry(memory.NewTaskStore(), zerolog.Nop())

	if err := r.Create(ctx, validTask("owner-1", "alpha")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, validTask("owner-1", "alpha")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Create duplicate = %v, want ErrDuplicateKey", err)
	}
	// The same name under a different owner is fine.
	if err := r.Create(ctx, validTask("owner-2", "alpha")); err != nil {
		t.Fatalf("Create for second owner: %v", err)
	}
}
