package acquire

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

//go:embed data/curated_papers.json
var curatedData []byte

// curatedRecord mirrors the bundled curated list's record shape.
type curatedRecord struct {
	LiteratureID string   `json:"literature_id"`
	Title        string   `json:"title"`
	Abstract     string   `json:"abstract"`
	Authors      []string `json:"authors,omitempty"`
	Year         int      `json:"year,omitempty"`
	Journal      string   `json:"journal,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// LoadCurated reads the bundled curated paper list. Records missing a
// literature ID or title are rejected rather than failing the ingest.
func LoadCurated() ([]*core.Paper, []core.RejectedRecord, error) {
	var records []curatedRecord
	if err := json.Unmarshal(curatedData, &records); err != nil {
		return nil, nil, fmt.Errorf("parsing curated list: %w", err)
	}
	var papers []*core.Paper
	var rejects []core.RejectedRecord
	for _, r := range records {
		if r.LiteratureID == "" || r.Title == "" {
			rejects = append(rejects, core.RejectedRecord{
				Stage:    "acquisition",
				RecordID: r.LiteratureID,
				Reason:   "invalid_curated_record",
				Message:  r.Title,
			})
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
	return papers, rejects, nil
}
