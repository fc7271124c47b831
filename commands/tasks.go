package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/board"
	"github.com/boardsync/boardsync/entity"
)

const dueDateLayout = "2006-01-02"

// NewTasksCmd builds the `tasks` command group. Every subcommand operates
// inside one project, given by --project.
func NewTasksCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks within a project",
	}
	cmd.PersistentFlags().StringVarP(&projectID, "project", "P", "", "Project id (required)")
	_ = cmd.MarkPersistentFlagRequired("project")

	cmd.AddCommand(newTasksListCmd(&projectID))
	cmd.AddCommand(newTasksCreateCmd(&projectID))
	cmd.AddCommand(newTasksUpdateCmd(&projectID))
	cmd.AddCommand(newTasksMoveCmd(&projectID))
	cmd.AddCommand(newTasksDeleteCmd(&projectID))
	return cmd
}

// openBoard wires the app and opens the board on the given project.
func openBoard(ctx context.Context, app *App, projectID string) error {
	if err := app.Projects.LoadAll(ctx); err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	project, ok := app.Projects.Get(projectID)
	if !ok {
		return fmt.Errorf("unknown project: %s", projectID)
	}
	if err := app.Board.Open(ctx, project); err != nil {
		return fmt.Errorf("open project %s: %w", projectID, err)
	}
	return nil
}

func newTasksListCmd(projectID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the project's tasks by column",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := openBoard(ctx, app, *projectID); err != nil {
				return err
			}

			printTasks(cmd, app.Board.Tasks())
			return nil
		},
	}
}

func newTasksCreateCmd(projectID *string) *cobra.Command {
	var (
		status   string
		priority string
		due      string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := entity.Task{Title: args[0]}
			if status != "" {
				s, err := entity.ParseStatus(status)
				if err != nil {
					return err
				}
				task.Status = s
			}
			if priority != "" {
				task.Priority = entity.Priority(priority)
			}
			if due != "" {
				t, err := time.Parse(dueDateLayout, due)
				if err != nil {
					return fmt.Errorf("parse due date %q: %w", due, err)
				}
				task.DueDate = &t
			}

			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := openBoard(ctx, app, *projectID); err != nil {
				return err
			}

			created, err := app.Board.Create(ctx, task)
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}

			cmd.Printf("Created task %s (%s) in %s\n", created.Title, created.ID, created.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Initial status (todo, in_progress, done)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low, medium, high)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTasksUpdateCmd(projectID *string) *cobra.Command {
	var (
		title    string
		status   string
		priority string
		due      string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entity.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("status") {
				s, err := entity.ParseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p := entity.Priority(priority)
				patch.Priority = &p
			}
			if cmd.Flags().Changed("due") {
				t, err := time.Parse(dueDateLayout, due)
				if err != nil {
					return fmt.Errorf("parse due date %q: %w", due, err)
				}
				patch.DueDate = &t
			}
			if patch.IsZero() {
				return fmt.Errorf("nothing to update: pass --title, --status, --priority, or --due")
			}

			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := openBoard(ctx, app, *projectID); err != nil {
				return err
			}

			updated, err := app.Board.Update(ctx, args[0], patch)
			if err != nil {
				return fmt.Errorf("update task: %w", err)
			}

			cmd.Printf("Updated task %s (%s)\n", updated.Title, updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&status, "status", "s", "", "New status (todo, in_progress, done)")
	cmd.Flags().StringVar(&priority, "priority", "", "New priority (low, medium, high)")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newTasksMoveCmd(projectID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <forward|backward>",
		Short: "Move a task one column along the board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var direction board.Direction
			switch args[1] {
			case "forward":
				direction = board.Forward
			case "backward", "back":
				direction = board.Backward
			default:
				return fmt.Errorf("unknown direction %q: use forward or backward", args[1])
			}

			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := openBoard(ctx, app, *projectID); err != nil {
				return err
			}

			moved, err := app.Board.ChangeStatus(ctx, args[0], direction)
			if err != nil {
				return fmt.Errorf("move task: %w", err)
			}

			cmd.Printf("Task %s is now %s\n", moved.Title, moved.Status)
			return nil
		},
	}
}

func newTasksDeleteCmd(projectID *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, fmt.Sprintf("Delete task %s?", args[0])) {
				cmd.Println("Aborted.")
				return nil
			}

			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := openBoard(ctx, app, *projectID); err != nil {
				return err
			}

			if err := app.Board.Remove(ctx, args[0]); err != nil {
				return fmt.Errorf("delete task: %w", err)
			}

			cmd.Printf("Deleted task %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func printTasks(cmd *cobra.Command, tasks []entity.Task) {
	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE")
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(dueDateLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, due)
	}
	_ = w.Flush()
}
