package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Service names, as configured in resolver.services_enabled.
const (
	ServiceGene     = "gene_service"
	ServiceProtein  = "protein_service"
	ServiceTaxonomy = "taxonomy_service"
	ServiceChemical = "chemical_service"
)

// Record is one resolution result from an external registry.
type Record struct {
	CanonicalName string   `json:"canonical_name"`
	PrimaryID     string   `json:"primary_id"`
	SecondaryIDs  []string `json:"secondary_ids,omitempty"`
	Source        string   `json:"source"`
}

// ServiceAdapter hides one external registry behind a uniform lookup. A nil
// record with nil error is a clean miss.
type ServiceAdapter interface {
	Service() string
	Types() []core.EntityType
	Lookup(ctx context.Context, normalizedKey string) (*Record, error)
}

// defaultEndpoints point each adapter at its public registry.
var defaultEndpoints = map[string]string{
	ServiceGene:     "https://mygene.info/v3",
	ServiceProtein:  "https://rest.uniprot.org/uniprotkb",
	ServiceTaxonomy: "https://api.ncbi.nlm.nih.gov/datasets/v2/taxonomy",
	ServiceChemical: "https://pubchem.ncbi.nlm.nih.gov/rest/pug",
}

// httpLookup is the shared transport: per-service token bucket, one retry on
// transient failure, bounded timeout.
type httpLookup struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPLookup(timeout time.Duration) *httpLookup {
	return &httpLookup{
		client: &http.Client{Timeout: timeout},
		// Public registries tolerate ~3 req/s without keys.
		limiter: rate.NewLimiter(rate.Limit(3), 1),
	}
}

func (h *httpLookup) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusOK:
			return body, err
		case resp.StatusCode == http.StatusNotFound:
			return nil, nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("service returned %d", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("service returned %d", resp.StatusCode)
		}
	}
	return nil, lastErr
}

// GeneAdapter resolves gene and protein symbols against a mygene-shaped
// query service.
type GeneAdapter struct {
	endpoint string
	http     *httpLookup
}

func (a *GeneAdapter) Service() string { return ServiceGene }

func (a *GeneAdapter) Types() []core.EntityType {
	return []core.EntityType{core.EntityGene, core.EntityProtein}
}

func (a *GeneAdapter) Lookup(ctx context.Context, key string) (*Record, error) {
	u := fmt.Sprintf("%s/query?q=symbol:%s&species=all&size=1", a.endpoint, url.QueryEscape(key))
	body, err := a.http.get(ctx, u)
	if err != nil || body == nil {
		return nil, err
	}
	var payload struct {
		Hits []struct {
			ID      json.Number `json:"_id"`
			Symbol  string      `json:"symbol"`
			Name    string      `json:"name"`
			Ensembl struct {
				Gene string `json:"gene"`
			} `json:"ensembl"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Hits) == 0 {
		return nil, nil
	}
	hit := payload.Hits[0]
	rec := &Record{
		CanonicalName: hit.Symbol,
		PrimaryID:     "NCBIGene:" + hit.ID.String(),
		Source:        a.Service(),
	}
	if hit.Ensembl.Gene != "" {
		rec.SecondaryIDs = append(rec.SecondaryIDs, "ENSEMBL:"+hit.Ensembl.Gene)
	}
	return rec, nil
}

// ProteinAdapter resolves protein names against a UniProt-shaped search
// service.
type ProteinAdapter struct {
	endpoint string
	http     *httpLookup
}

func (a *ProteinAdapter) Service() string { return ServiceProtein }

func (a *ProteinAdapter) Types() []core.EntityType {
	return []core.EntityType{core.EntityProtein}
}

func (a *ProteinAdapter) Lookup(ctx context.Context, key string) (*Record, error) {
	u := fmt.Sprintf("%s/search?query=%s&size=1&format=json", a.endpoint, url.QueryEscape(key))
	body, err := a.http.get(ctx, u)
	if err != nil || body == nil {
		return nil, err
	}
	var payload struct {
		Results []struct {
			PrimaryAccession string `json:"primaryAccession"`
			ProteinDescription struct {
				RecommendedName struct {
					FullName struct {
						Value string `json:"value"`
					} `json:"fullName"`
				} `json:"recommendedName"`
			} `json:"proteinDescription"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}
	hit := payload.Results[0]
	return &Record{
		CanonicalName: hit.ProteinDescription.RecommendedName.FullName.Value,
		PrimaryID:     "UniProt:" + hit.PrimaryAccession,
		Source:        a.Service(),
	}, nil
}

// TaxonomyAdapter resolves organism names against an NCBI-taxonomy-shaped
// service.
type TaxonomyAdapter struct {
	endpoint string
	http     *httpLookup
}

func (a *TaxonomyAdapter) Service() string { return ServiceTaxonomy }

func (a *TaxonomyAdapter) Types() []core.EntityType {
	return []core.EntityType{core.EntityOrganism}
}

func (a *TaxonomyAdapter) Lookup(ctx context.Context, key string) (*Record, error) {
	u := fmt.Sprintf("%s/taxon/%s", a.endpoint, url.PathEscape(key))
	body, err := a.http.get(ctx, u)
	if err != nil || body == nil {
		return nil, err
	}
	var payload struct {
		TaxonomyNodes []struct {
			Taxonomy struct {
				TaxID          int    `json:"tax_id"`
				OrganismName   string `json:"organism_name"`
				CommonName     string `json:"common_name"`
			} `json:"taxonomy"`
		} `json:"taxonomy_nodes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.TaxonomyNodes) == 0 {
		return nil, nil
	}
	node := payload.TaxonomyNodes[0].Taxonomy
	name := node.OrganismName
	if name == "" {
		name = node.CommonName
	}
	return &Record{
		CanonicalName: name,
		PrimaryID:     "NCBITaxon:" + strconv.Itoa(node.TaxID),
		Source:        a.Service(),
	}, nil
}

// ChemicalAdapter resolves compound names against a PubChem-shaped service.
type ChemicalAdapter struct {
	endpoint string
	http     *httpLookup
}

func (a *ChemicalAdapter) Service() string { return ServiceChemical }

func (a *ChemicalAdapter) Types() []core.EntityType {
	return []core.EntityType{core.EntityChemical}
}

func (a *ChemicalAdapter) Lookup(ctx context.Context, key string) (*Record, error) {
	u := fmt.Sprintf("%s/compound/name/%s/cids/JSON", a.endpoint, url.PathEscape(key))
	body, err := a.http.get(ctx, u)
	if err != nil || body == nil {
		return nil, err
	}
	var payload struct {
		IdentifierList struct {
			CID []int `json:"CID"`
		} `json:"IdentifierList"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if len(payload.IdentifierList.CID) == 0 {
		return nil, nil
	}
	return &Record{
		// PubChem's CID lookup echoes the queried name as canonical.
		CanonicalName: key,
		PrimaryID:     "PubChem:" + strconv.Itoa(payload.IdentifierList.CID[0]),
		Source:        a.Service(),
	}, nil
}

// newAdapter constructs the adapter for a configured service name.
func newAdapter(service string, endpoints map[string]string, timeout time.Duration) (ServiceAdapter, error) {
	endpoint := endpoints[service]
	if endpoint == "" {
		endpoint = defaultEndpoints[service]
	}
	h := newHTTPLookup(timeout)
	switch service {
	case ServiceGene:
		return &GeneAdapter{endpoint: endpoint, http: h}, nil
	case ServiceProtein:
		return &ProteinAdapter{endpoint: endpoint, http: h}, nil
	case ServiceTaxonomy:
		return &TaxonomyAdapter{endpoint: endpoint, http: h}, nil
	case ServiceChemical:
		return &ChemicalAdapter{endpoint: endpoint, http: h}, nil
	default:
		return nil, fmt.Errorf("unknown resolver service %q", service)
	}
}
