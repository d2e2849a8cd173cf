package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/trainmon/pkg/state"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage the stored dataset selection",
	}
	cmd.AddCommand(newDatasetSelectCmd())
	cmd.AddCommand(newDatasetShowCmd())
	cmd.AddCommand(newDatasetClearCmd())
	return cmd
}

func newDatasetSelectCmd() *cobra.Command {
	var id int
	var name string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Store the dataset the monitor should download models for",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			var d state.SelectedDataset
			if cmd.Flags().Changed("id") {
				d.ID = &id
			}
			if cmd.Flags().Changed("name") {
				d.Name = &name
			}
			if d.ID == nil && d.Name == nil {
				return errors.New("pass --id and/or --name")
			}
			if err := state.SaveSelectedDataset(opts.Settings.StateDir, d); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", state.SelectedDatasetPath(opts.Settings.StateDir))
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "Dataset id")
	cmd.Flags().StringVar(&name, "name", "", "Dataset name")
	return cmd
}

func newDatasetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored dataset selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			d, err := state.LoadSelectedDataset(opts.Settings.StateDir)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return errors.Wrap(err, "marshal output")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

func newDatasetClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored dataset selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			return state.RemoveSelectedDataset(opts.Settings.StateDir)
		},
	}
}
