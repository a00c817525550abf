package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
)

// Actions 支持的迁移动作（migrate 子命令的第一个参数）
var Actions = []string{"up", "down", "reset", "steps", "goto", "force", "version", "status", "info"}

// CLI 快照表迁移的终端交互层
type CLI struct {
	migrator Migrator
	output   io.Writer
}

// NewCLI 默认输出到 stdout
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

// SetOutput 设置输出目标
func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.output, format, args...)
}

// Run 按动作名分派；steps/goto/force 需要一个整数参数
func (c *CLI) Run(ctx context.Context, action string, args []string) error {
	switch action {
	case "up":
		return c.Up(ctx)
	case "down":
		return c.Down(ctx)
	case "reset":
		return c.Reset(ctx)
	case "version":
		return c.Version(ctx)
	case "status":
		return c.Status(ctx)
	case "info":
		return c.Info(ctx)
	case "steps", "goto", "force":
		n, err := intArg(action, args)
		if err != nil {
			return err
		}
		return c.runNumeric(ctx, action, n)
	default:
		return fmt.Errorf("unknown migrate action %q (expected one of %v)", action, Actions)
	}
}

func intArg(action string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires exactly one integer argument", action)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument %q: %w", action, args[0], err)
	}
	return n, nil
}

func (c *CLI) runNumeric(ctx context.Context, action string, n int) error {
	switch action {
	case "steps":
		if n == 0 {
			return fmt.Errorf("steps must be non-zero")
		}
		return c.Steps(ctx, n)
	case "goto":
		if n < 0 {
			return fmt.Errorf("goto version must not be negative")
		}
		return c.Goto(ctx, uint(n))
	default:
		return c.Force(ctx, n)
	}
}

// afterChange 变更后打印当前版本
func (c *CLI) afterChange(ctx context.Context, done string) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	c.printf("%s. Current version: %d\n", done, info.CurrentVersion)
	return nil
}

// Up 应用所有待执行迁移
func (c *CLI) Up(ctx context.Context) error {
	c.printf("Applying snapshot schema migrations...\n")
	if err := c.migrator.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return c.afterChange(ctx, "Migrations complete")
}

// Down 回滚一步
func (c *CLI) Down(ctx context.Context) error {
	c.printf("Rolling back last migration...\n")
	if err := c.migrator.Down(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return c.afterChange(ctx, "Rollback complete")
}

// Reset 回滚全部迁移，快照表会被删除
func (c *CLI) Reset(ctx context.Context) error {
	c.printf("Rolling back all migrations...\n")
	if err := c.migrator.DownAll(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	c.printf("All migrations rolled back.\n")
	return nil
}

// Steps n>0 前进，n<0 回退
func (c *CLI) Steps(ctx context.Context, n int) error {
	if n > 0 {
		c.printf("Applying %d migration(s)...\n", n)
	} else {
		c.printf("Rolling back %d migration(s)...\n", -n)
	}
	if err := c.migrator.Steps(ctx, n); err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return c.afterChange(ctx, "Complete")
}

// Goto 迁移到指定版本
func (c *CLI) Goto(ctx context.Context, version uint) error {
	c.printf("Migrating to version %d...\n", version)
	if err := c.migrator.Goto(ctx, version); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	c.printf("Migration complete. Current version: %d\n", version)
	return nil
}

// Force 强制设置版本并清除 dirty 标记，不执行任何 SQL
func (c *CLI) Force(ctx context.Context, version int) error {
	c.printf("Forcing version to %d...\n", version)
	if err := c.migrator.Force(ctx, version); err != nil {
		return fmt.Errorf("force failed: %w", err)
	}
	c.printf("Version forced to %d\n", version)
	return nil
}

// Version 打印当前版本
func (c *CLI) Version(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	switch {
	case version == 0:
		c.printf("No migrations applied yet.\n")
	case dirty:
		c.printf("Current version: %d (dirty)\n", version)
	default:
		c.printf("Current version: %d\n", version)
	}
	return nil
}

// Status 逐条列出迁移及其状态
func (c *CLI) Status(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		c.printf("No migrations found.\n")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, statusLabel(s))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	c.printf("\nTotal: %d, Applied: %d, Pending: %d\n",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
	return nil
}

func statusLabel(s MigrationStatus) string {
	switch {
	case s.Dirty:
		return "Dirty"
	case s.Applied:
		return "Applied"
	default:
		return "Pending"
	}
}

// Info 打印汇总信息
func (c *CLI) Info(ctx context.Context) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}
	c.printf("Snapshot schema:\n")
	c.printf("  current version: %d (dirty: %v)\n", info.CurrentVersion, info.Dirty)
	c.printf("  migrations:      %d total, %d applied, %d pending\n",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
	return nil
}
