package cmds

import (
	"fmt"

	"github.com/go-go-golems/trainmon/pkg/artifact"
	"github.com/go-go-golems/trainmon/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDownloadCmd() *cobra.Command {
	var id int

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the trained model for the selected dataset (or --id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			var modelID *int
			if cmd.Flags().Changed("id") {
				modelID = &id
			} else {
				d, err := state.LoadSelectedDataset(opts.Settings.StateDir)
				if err != nil {
					return err
				}
				modelID = d.ID
			}

			c := opts.client()
			out := cmd.OutOrStdout()
			d := artifact.NewDownloader(c.DownloadURL, opts.saver(), artifact.LoggerFunc(func(message string) {
				_, _ = fmt.Fprintln(out, message)
			}))
			if !d.Download(cmd.Context(), modelID) {
				return errors.New("download failed")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&id, "id", 0, "Model id to download (defaults to the selected dataset id)")
	return cmd
}
