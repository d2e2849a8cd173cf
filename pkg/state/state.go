package state

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const SelectedDatasetFilename = "selected_dataset.json"

// SelectedDataset is the dataset the user picked before training. Either field may be unset.
type SelectedDataset struct {
	ID   *int    `json:"id"`
	Name *string `json:"name"`
}

func (d SelectedDataset) HasID() bool { return d.ID != nil }

func SelectedDatasetPath(stateDir string) string {
	return filepath.Join(stateDir, SelectedDatasetFilename)
}

// LoadSelectedDataset reads the stored selection. A missing file yields an empty selection and no error;
// an unparseable file, or a bare null, yields an empty selection and an error describing why.
func LoadSelectedDataset(stateDir string) (SelectedDataset, error) {
	b, err := os.ReadFile(SelectedDatasetPath(stateDir))
	if err != nil {
		if os.IsNotExist(err) {
			return SelectedDataset{}, nil
		}
		return SelectedDataset{}, errors.Wrap(err, "read selected dataset")
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return SelectedDataset{}, errors.New("parse selected dataset json: stored value is null")
	}
	var d SelectedDataset
	if err := json.Unmarshal(b, &d); err != nil {
		return SelectedDataset{}, errors.Wrap(err, "parse selected dataset json")
	}
	return d, nil
}

func SaveSelectedDataset(stateDir string, d SelectedDataset) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal selected dataset")
	}
	if err := os.WriteFile(SelectedDatasetPath(stateDir), b, 0o644); err != nil {
		return errors.Wrap(err, "write selected dataset")
	}
	return nil
}

func RemoveSelectedDataset(stateDir string) error {
	if err := os.Remove(SelectedDatasetPath(stateDir)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove selected dataset")
	}
	return nil
}
