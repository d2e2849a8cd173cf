package cmds

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/trainmon/pkg/tui"
	"github.com/go-go-golems/trainmon/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd() *cobra.Command {
	var altScreen bool
	var paused bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Interactive terminal UI following the training stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bus, err := tui.NewInMemoryBus()
			if err != nil {
				return err
			}

			notifier := &tui.BusNotifier{Pub: bus.Publisher}
			session := opts.newSession(notifier)
			notifier.Snapshot = session.Snapshot
			defer session.Close()

			tui.RegisterDomainToUITransformer(bus)
			tui.RegisterUIActionRunner(bus, session)

			model := models.NewRootModel(bus.Publisher)
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(bus, program)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				session.Start(egCtx)
				if !paused {
					session.SetTraining(true)
				}
				<-egCtx.Done()
				session.Close()
				return nil
			})
			eg.Go(func() error {
				_, err := program.Run()
				cancel()
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if err := eg.Wait(); err != nil {
				return errors.Wrap(err, "watch")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	cmd.Flags().BoolVar(&paused, "paused", false, "Start with the stream disconnected (press t to connect)")
	return cmd
}
