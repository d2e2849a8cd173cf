package cmds

import (
	"github.com/go-go-golems/trainmon/cmd/trainmon/cmds/dev"
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(dev.NewCmd())

	root.AddCommand(newWatchCmd())
	root.AddCommand(newTailCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newDatasetCmd())

	resultsCmd, err := newResultsCmd(root)
	if err != nil {
		return err
	}
	root.AddCommand(resultsCmd)
	return nil
}
