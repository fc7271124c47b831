package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/events"
)

// NewWatchCmd builds the `watch` command, which streams board events to
// stdout until interrupted. Useful for watching what other clients do.
func NewWatchCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream board events as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(slog.Default())
			if err != nil {
				return err
			}
			defer app.Close()

			var unsubs []events.Unsubscribe
			defer func() {
				for _, unsub := range unsubs {
					_ = unsub()
				}
			}()

			subscribe := func(bind func() (events.Unsubscribe, error)) error {
				unsub, err := bind()
				if err != nil {
					return err
				}
				unsubs = append(unsubs, unsub)
				return nil
			}

			binds := []func() (events.Unsubscribe, error){
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeProjectCreated(func(p entity.Project) {
						cmd.Printf("project created   %s  %s\n", p.ID, p.Name)
					})
				},
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeProjectUpdated(func(p entity.Project) {
						cmd.Printf("project updated   %s  %s\n", p.ID, p.Name)
					})
				},
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeProjectDeleted(func(id string) {
						cmd.Printf("project deleted   %s\n", id)
					})
				},
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeTaskCreated(func(t entity.Task) {
						if projectID == "" || t.ProjectID == projectID {
							cmd.Printf("task created      %s  %s [%s]\n", t.ID, t.Title, t.Status)
						}
					})
				},
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeTaskUpdated(func(t entity.Task) {
						if projectID == "" || t.ProjectID == projectID {
							cmd.Printf("task updated      %s  %s [%s]\n", t.ID, t.Title, t.Status)
						}
					})
				},
				func() (events.Unsubscribe, error) {
					return app.Channel.SubscribeTaskDeleted(func(id, taskProjectID string) {
						if projectID == "" || taskProjectID == projectID {
							cmd.Printf("task deleted      %s\n", id)
						}
					})
				},
			}
			for _, bind := range binds {
				if err := subscribe(bind); err != nil {
					return fmt.Errorf("bind watch subscription: %w", err)
				}
			}

			cmd.Println("Watching board events. Ctrl+C to stop.")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			cmd.Println("Stopped.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "P", "", "Only show task events for this project")
	return cmd
}
