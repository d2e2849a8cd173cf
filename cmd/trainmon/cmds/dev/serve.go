package dev

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/go-go-golems/trainmon/pkg/fakeserver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		fail     []string
		finished bool
		dropAt   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a fake training service that replays a scripted run over SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := fakeserver.New(fakeserver.Options{
				Interval:      interval,
				Fail:          fail,
				WaitForClient: true,
				Finished:      finished,
			})

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrap(err, "listen")
			}
			httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
			log.Info().Str("addr", ln.Addr().String()).Msg("fake training service listening")

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(func() error {
				err := httpSrv.Serve(ln)
				if stderrors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
			if !finished {
				eg.Go(func() error {
					if dropAt > 0 {
						go dropStreams(ctx, srv, time.Duration(dropAt)*interval)
					}
					err := srv.Run(ctx)
					if stderrors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			return eg.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "Listen address")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Time each model spends in processing")
	cmd.Flags().StringSliceVar(&fail, "fail", nil, "Model names to report as failed")
	cmd.Flags().BoolVar(&finished, "finished", false, "Start with results present and no run")
	cmd.Flags().IntVar(&dropAt, "drop-after", 0, "Drop all streams once after this many intervals (exercises reconnects)")
	return cmd
}

func dropStreams(ctx context.Context, srv *fakeserver.Server, after time.Duration) {
	t := time.NewTimer(after)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		log.Info().Int("clients", srv.Broker().Clients()).Msg("dropping stream clients")
		srv.Broker().DisconnectAll()
	}
}
