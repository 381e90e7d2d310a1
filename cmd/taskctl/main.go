// Package main provides taskctl, the operator CLI for managing sniping
// tasks: create, update, delete, enable/disable and list, straight against
// the task store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mintsniper/internal/config"
	"mintsniper/internal/dispatch"
	"mintsniper/internal/domain"
	"mintsniper/internal/storage/migrations"
	pgstore "mintsniper/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx := context.Background()
	var err error
	switch cmd {
	case "create":
		err = runCreate(ctx, args)
	case "update":
		err = runUpdate(ctx, args)
	case "delete":
		err = runDelete(ctx, args)
	case "enable":
		err = runSetEnabled(ctx, args, true)
	case "disable":
		err = runSetEnabled(ctx, args, false)
	case "list":
		err = runList(ctx, args)
	case "get":
		err = runGet(ctx, args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "taskctl %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: taskctl <command> [flags]

commands:
  create   create a new task
  update   replace an existing task
  delete   delete a task
  enable   enable a task
  disable  disable a task
  list     list tasks of one owner
  get      show one task`)
}

// openRegistry connects to the configured task store.
func openRegistry(ctx context.Context, configPath string) (*dispatch.TaskRegistry, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	registry := dispatch.NewTaskRegistry(pgstore.NewTaskStore(pool), zerolog.Nop())
	return registry, pool.Close, nil
}

// taskFlags holds the flag set shared by create and update.
type taskFlags struct {
	fs *flag.FlagSet

	configPath *string
	taskID     *string
	owner      *string
	name       *string
	platform   *string
	channel    *string
	authors    *string
	amount     *float64
	slippage   *int
	priority   *float64
	blacklist  *string
	wallet     *string
	walletName *string
	informOnly *bool
	disabled   *bool
}

func newTaskFlags(name string) *taskFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &taskFlags{
		fs:         fs,
		configPath: fs.String("config", "", "Path to TOML configuration file"),
		taskID:     fs.String("task-id", "", "Task ID (generated on create when empty)"),
		owner:      fs.String("owner", "", "Owner ID (required)"),
		name:       fs.String("name", "", "Task name, unique per owner (required)"),
		platform:   fs.String("platform", "TELEGRAM", "Platform: TELEGRAM or DISCORD"),
		channel:    fs.String("channel", "", "Channel filter (empty = any channel)"),
		authors:    fs.String("authors", "", "Comma-separated author filter (empty = any author)"),
		amount:     fs.Float64("amount-sol", 0, "Buy amount in SOL"),
		slippage:   fs.Int("slippage", 15, "Slippage percent"),
		priority:   fs.Float64("priority-fee-sol", 0, "Priority fee in SOL"),
		blacklist:  fs.String("blacklist", "", "Comma-separated blacklist words"),
		wallet:     fs.String("wallet", "", "Wallet address"),
		walletName: fs.String("wallet-label", "", "Wallet label"),
		informOnly: fs.Bool("inform-only", false, "Notify instead of buying"),
		disabled:   fs.Bool("disabled", false, "Create the task disabled"),
	}
}

func (f *taskFlags) task(now int64) *domain.Task {
	return &domain.Task{
		TaskID:          *f.taskID,
		OwnerID:         *f.owner,
		Name:            *f.name,
		Platform:        domain.Platform(strings.ToUpper(*f.platform)),
		ChannelID:       *f.channel,
		AuthorIDs:       splitList(*f.authors),
		BuyAmountSOL:    *f.amount,
		SlippagePercent: *f.slippage,
		PriorityFeeSOL:  *f.priority,
		BlacklistWords:  splitList(*f.blacklist),
		WalletAddress:   *f.wallet,
		WalletLabel:     *f.walletName,
		InformOnly:      *f.informOnly,
		Enabled:         !*f.disabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runCreate(ctx context.Context, args []string) error {
	f := newTaskFlags("create")
	f.fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *f.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	task := f.task(time.Now().UnixMilli())
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	if err := registry.Create(ctx, task); err != nil {
		return err
	}
	fmt.Println(task.TaskID)
	return nil
}

func runUpdate(ctx context.Context, args []string) error {
	f := newTaskFlags("update")
	f.fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *f.configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	existing, err := registry.Get(ctx, *f.owner, *f.taskID)
	if err != nil {
		return err
	}

	task := f.task(time.Now().UnixMilli())
	task.CreatedAt = existing.CreatedAt
	return registry.Update(ctx, task)
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to TOML configuration file")
	owner := fs.String("owner", "", "Owner ID (required)")
	taskID := fs.String("task-id", "", "Task ID (required)")
	fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	return registry.Delete(ctx, *owner, *taskID)
}

func runSetEnabled(ctx context.Context, args []string, enabled bool) error {
	fs := flag.NewFlagSet("enable", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to TOML configuration file")
	owner := fs.String("owner", "", "Owner ID (required)")
	taskID := fs.String("task-id", "", "Task ID (required)")
	fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	task, err := registry.Get(ctx, *owner, *taskID)
	if err != nil {
		return err
	}
	task.Enabled = enabled
	task.UpdatedAt = time.Now().UnixMilli()
	return registry.Update(ctx, task)
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to TOML configuration file")
	owner := fs.String("owner", "", "Owner ID (required)")
	fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	tasks, err := registry.ListByOwner(ctx, *owner)
	if err != nil {
		return err
	}
	return printJSON(tasks)
}

func runGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to TOML configuration file")
	owner := fs.String("owner", "", "Owner ID (required)")
	taskID := fs.String("task-id", "", "Task ID (required)")
	fs.Parse(args)

	registry, closeFn, err := openRegistry(ctx, *configPath)
	if err != nil {
		return err
	}
	defer closeFn()

	task, err := registry.Get(ctx, *owner, *taskID)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
