package cmds

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-go-golems/trainmon/pkg/monitor"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// lineWriter prints session log lines and reports terminal conditions.
type lineWriter struct {
	mu        sync.Mutex
	w         io.Writer
	exhausted chan struct{}
	complete  chan struct{}
	once      sync.Once
	doneOnce  sync.Once
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w, exhausted: make(chan struct{}), complete: make(chan struct{})}
}

func (l *lineWriter) Notify(c monitor.Change) {
	switch c.Kind {
	case monitor.ChangeLog:
		l.mu.Lock()
		_, _ = fmt.Fprintln(l.w, c.Entry.String())
		l.mu.Unlock()
	case monitor.ChangeConnection:
		if c.Transition != nil && c.Transition.To == monitor.StateExhausted {
			l.once.Do(func() { close(l.exhausted) })
		}
	case monitor.ChangeComplete:
		l.doneOnce.Do(func() { close(l.complete) })
	}
}

func newTailCmd() *cobra.Command {
	var untilComplete bool
	var download bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the training log to stdout until the stream gives up or you interrupt",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			out := newLineWriter(cmd.OutOrStdout())
			session := opts.newSession(out)
			defer session.Close()

			session.Start(ctx)
			session.SetTraining(true)

			complete := out.complete
			if !untilComplete && !download {
				complete = nil
			}

			select {
			case <-ctx.Done():
				return nil
			case <-out.exhausted:
				return errors.Wrap(monitor.ErrExhausted, "tail")
			case <-complete:
			}

			session.SetTraining(false)
			if download && !session.Download(ctx) {
				return errors.New("download failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&untilComplete, "until-complete", false, "Exit once training is reported complete")
	cmd.Flags().BoolVar(&download, "download", false, "Download the model once training is complete (implies --until-complete)")
	return cmd
}
