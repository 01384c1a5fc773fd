package hierarchy

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk shape of the rank table.
type tableFile struct {
	Ranks []*RankDefinition `yaml:"ranks"`
}

// DecodeTable parses YAML rank definitions.
func DecodeTable(data []byte) (*Table, error) {
	transient := &tableFile{}
	if err := yaml.Unmarshal(data, transient); err != nil {
		return nil, fmt.Errorf("hierarchy: failed to decode rank table: %w", err)
	}
	return NewTable(transient.Ranks)
}

// LoadTable reads the rank table from URL (file path, s3://, mem:// etc.)
// via the supplied afs service. The table is loaded once at configuration
// time; runtime lookups never re-read it.
func LoadTable(ctx context.Context, fs afs.Service, URL string) (*Table, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: failed to load rank table %s: %w", URL, err)
	}
	return DecodeTable(data)
}
