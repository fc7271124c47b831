package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/entity"
)

// NewProjectsCmd builds the `projects` command group.
func NewProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectsListCmd())
	cmd.AddCommand(newProjectsCreateCmd())
	cmd.AddCommand(newProjectsUpdateCmd())
	cmd.AddCommand(newProjectsDeleteCmd())
	return cmd
}

func newProjectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			if err := app.Projects.LoadAll(ctx); err != nil {
				return fmt.Errorf("list projects: %w", err)
			}

			printProjects(cmd, app.Projects.Projects())
			return nil
		},
	}
}

func newProjectsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			created, err := app.Projects.Create(ctx, args[0], description)
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}

			cmd.Printf("Created project %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	return cmd
}

func newProjectsUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project's name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entity.ProjectPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.IsZero() {
				return fmt.Errorf("nothing to update: pass --name or --description")
			}

			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := app.commandContext()
			defer cancel()

			updated, err := app.Projects.Update(ctx, args[0], patch)
			if err != nil {
				return fmt.Errorf("update project: %w", err)
			}

			cmd.Printf("Updated project %s (%s)\n", updated.Name, updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New project name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New project description")
	return cmd
}

func newProjectsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, fmt.Sprintf("Delete project %s and all its tasks?", args[0])) {
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

			if err := app.Projects.Remove(ctx, args[0]); err != nil {
				return fmt.Errorf("delete project: %w", err)
			}

			cmd.Printf("Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func printProjects(cmd *cobra.Command, projects []entity.Project) {
	if len(projects) == 0 {
		cmd.Println("No projects.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
	for _, p := range projects {
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Description, created)
	}
	_ = w.Flush()
}

func confirm(cmd *cobra.Command, prompt string) bool {
	cmd.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
