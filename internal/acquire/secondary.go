package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// SourceAdapter is the capability a secondary acquisition channel implements.
// Adapters emit records in the common Paper shape; a failing adapter is
// skipped, never fatal.
type SourceAdapter interface {
	Tag() string
	Fetch(ctx context.Context) ([]*core.Paper, error)
}

// adapterRegistry maps configured source tags to adapter constructors.
var adapterRegistry = map[string]func() (SourceAdapter, error){
	"local_json": func() (SourceAdapter, error) {
		dir := os.Getenv("SECONDARY_SOURCE_DIR")
		if dir == "" {
			dir = "secondary_sources"
		}
		return &LocalJSONAdapter{Dir: dir}, nil
	},
}

// RegisterAdapter installs a secondary source adapter under the given tag.
// Used by tests and by deployments that inject their own channels.
func RegisterAdapter(tag string, factory func() (SourceAdapter, error)) {
	adapterRegistry[tag] = factory
}

// LocalJSONAdapter ingests curated-shaped record files dropped into a local
// directory, one JSON array per file.
type LocalJSONAdapter struct {
	Dir string
}

// Tag returns the adapter's source tag.
func (a *LocalJSONAdapter) Tag() string { return "local_json" }

// Fetch reads every *.json file in the adapter directory in name order.
func (a *LocalJSONAdapter) Fetch(ctx context.Context) ([]*core.Paper, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var papers []*core.Paper
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(a.Dir, name))
		if err != nil {
			return nil, err
		}
		var records []curatedRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		for _, r := range records {
			if r.LiteratureID == "" || r.Title == "" {
				continue
			}
			papers = append(papers, &core.Paper{
				LiteratureID:    r.LiteratureID,
				Title:           r.Title,
				Abstract:        r.Abstract,
				Authors:         r.Authors,
				PublicationYear: r.Year,
				Journal:         r.Journal,
				Keywords:        r.Keywords,
			})
		}
	}
	return papers, nil
}
