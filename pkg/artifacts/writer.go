package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stratum-hq/strata/pkg/backend"
)

// Writer persists compiled outputs under a base directory, one
// subdirectory per adapter. Artifact content and ordering are written
// exactly as compiled; the writer only chooses file names.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the base output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// metadataRecord is the per-adapter metadata file written next to the
// artifacts. No timestamp: rewriting the same compile must yield an
// identical tree so output directories stay diffable.
type metadataRecord struct {
	PolicyName    string            `json:"policy_name"`
	PolicyVersion string            `json:"policy_version"`
	Adapter       string            `json:"adapter"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Write persists every artifact of one compiled output plus a metadata
// record, returning the written paths in artifact order. Text artifacts
// get a .conf extension, structured artifacts .json.
func (w *Writer) Write(out *backend.CompiledOutput) ([]string, error) {
	adapterDir := filepath.Join(w.dir, out.Adapter)
	if err := os.MkdirAll(adapterDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", adapterDir, err)
	}

	paths := make([]string, 0, len(out.Artifacts)+1)
	for _, art := range out.Artifacts {
		path := filepath.Join(adapterDir, art.Target+extensionFor(art.Kind))
		data, err := artifactBytes(art)
		if err != nil {
			return nil, fmt.Errorf("encoding artifact %s/%s: %w", out.Adapter, art.Target, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing artifact %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	metaPath := filepath.Join(adapterDir, "metadata.json")
	meta, err := json.MarshalIndent(metadataRecord{
		PolicyName:    out.PolicyName,
		PolicyVersion: out.PolicyVersion,
		Adapter:       out.Adapter,
		Metadata:      out.Metadata,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata for %s: %w", out.Adapter, err)
	}
	if err := os.WriteFile(metaPath, append(meta, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing metadata %s: %w", metaPath, err)
	}
	paths = append(paths, metaPath)

	return paths, nil
}

// WriteAll persists one compile pass worth of outputs.
func (w *Writer) WriteAll(outputs []*backend.CompiledOutput) ([]string, error) {
	var paths []string
	for _, out := range outputs {
		p, err := w.Write(out)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p...)
	}
	return paths, nil
}

func extensionFor(kind backend.ContentKind) string {
	if kind == backend.KindStructured {
		return ".json"
	}
	return ".conf"
}

func artifactBytes(art backend.CompiledArtifact) ([]byte, error) {
	if art.Kind == backend.KindStructured {
		data, err := json.MarshalIndent(art.Data, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return []byte(art.Text), nil
}
