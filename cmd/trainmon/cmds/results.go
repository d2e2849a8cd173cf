package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ResultsCommand prints the results of the last finished training run.
// Connection settings come from the root command's persistent flags.
type ResultsCommand struct {
	*glazedcmds.CommandDescription
	root *cobra.Command
}

var _ glazedcmds.WriterCommand = (*ResultsCommand)(nil)

func NewResultsCommand(root *cobra.Command) (*ResultsCommand, error) {
	if root == nil {
		return nil, errors.New("missing root command")
	}
	return &ResultsCommand{
		CommandDescription: glazedcmds.NewCommandDescription(
			"results",
			glazedcmds.WithShort("Print prior model results reported by the training service"),
		),
		root: root,
	}, nil
}

func (c *ResultsCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	opts, err := getRootOptions(c.root)
	if err != nil {
		return err
	}

	results, err := opts.client().FetchModelResults(ctx)
	if err != nil {
		return err
	}

	type resultInfo struct {
		ID        any            `json:"id,omitempty"`
		DatasetID any            `json:"dataset_id,omitempty"`
		ModelName string         `json:"model_name"`
		Metrics   map[string]any `json:"metrics,omitempty"`
		CreatedAt string         `json:"created_at,omitempty"`
	}

	infos := make([]resultInfo, 0, len(results))
	for _, r := range results {
		info := resultInfo{ID: r.ID, DatasetID: r.DatasetID, ModelName: r.ModelName, Metrics: r.Metrics, CreatedAt: r.CreatedAt}
		if t, err := r.CreatedTime(); err == nil {
			info.CreatedAt = t.UTC().Format("2006-01-02T15:04:05Z")
		}
		infos = append(infos, info)
	}

	b, err := json.MarshalIndent(map[string]any{
		"api_url":  opts.Settings.APIURL,
		"complete": len(infos) > 0,
		"results":  infos,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	_, _ = fmt.Fprintln(w, string(b))
	return nil
}

func newResultsCmd(root *cobra.Command) (*cobra.Command, error) {
	c, err := NewResultsCommand(root)
	if err != nil {
		return nil, err
	}
	return cli.BuildCobraCommand(c, cli.WithParserConfig(cli.CobraParserConfig{AppName: "trainmon"}))
}
