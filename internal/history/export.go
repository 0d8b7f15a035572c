package history

import (
	"context"
	"io"
	"math"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"
)

// ExportYAML writes every document and its full transcript to w. When
// documentID is set only that document is written.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, documentID string) error {
	docs, err := s.Documents(ctx)
	if err != nil {
		return err
	}
	selected := docs[:0]
	for _, d := range docs {
		if documentID != "" && d.ID != documentID {
			continue
		}
		d.Exchanges, err = s.Recent(ctx, d.ID, math.MaxInt32)
		if err != nil {
			return err
		}
		selected = append(selected, d)
	}
	if documentID != "" && len(selected) == 0 {
		return errors.Errorf("no history for document %s", documentID)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(selected); err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	return enc.Close()
}
