// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/redtable/combat-tracker/internal/model"
)

const (
	exportName   = "encounter.json"
	exportNameGz = "encounter.json.gz"
)

// EncounterExport is the root JSON structure written to the output directory.
type EncounterExport struct {
	Encounter  string           `json:"encounter"`
	SavedAt    time.Time        `json:"savedAt"`
	Combatants []model.Record   `json:"combatants"`
	Hits       []model.HitEvent `json:"hits"`
}

// writeExport writes the current state. Callers hold b.mu.
func (b *Backend) writeExport() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data := EncounterExport{
		Encounter:  b.encounter,
		SavedAt:    b.savedAt,
		Combatants: b.records,
		Hits:       b.hits,
	}
	if data.Combatants == nil {
		data.Combatants = []model.Record{}
	}

	name := exportName
	if b.cfg.CompressOutput {
		name = exportNameGz
	}
	outputPath := filepath.Join(b.cfg.OutputDir, name)
	if err := WriteExportFile(outputPath, data); err != nil {
		return err
	}

	b.exportPath = outputPath
	return nil
}

// WriteExportFile writes data to path, gzipped when path ends in .gz. The
// file is written beside the target and renamed so a crash never leaves a
// truncated export.
func WriteExportFile(path string, data EncounterExport) error {
	tmp := path + ".tmp"
	var err error
	if filepath.Ext(path) == ".gz" {
		err = writeGzipJSON(tmp, data)
	} else {
		err = writeJSON(tmp, data)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}

func writeJSON(path string, data EncounterExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data EncounterExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		return err
	}
	return gzWriter.Close()
}

// readExport loads the export in dir, preferring the uncompressed file. It
// returns nil when neither file exists.
func readExport(dir string) (*EncounterExport, string, error) {
	for _, name := range []string{exportName, exportNameGz} {
		path := filepath.Join(dir, name)
		export, err := ReadExportFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return export, path, nil
	}
	return nil, "", nil
}

// ReadExportFile decodes an export written by this backend. Files ending in
// .gz are decompressed.
func ReadExportFile(path string) (*EncounterExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var export EncounterExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &export, nil
}
