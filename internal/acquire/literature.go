package acquire

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

const searchPageSize = 100

// LiteratureClient speaks the E-utilities-shaped literature API: paged
// esearch for id lists, efetch for full metadata records. Every request
// carries the configured contact email and, when present, the api key.
type LiteratureClient struct {
	endpoint   string
	email      string
	apiKey     string
	dateStart  string
	dateEnd    string
	maxRetries int
	fanout     int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewLiteratureClient builds a client honoring the service's documented rate
// ceiling: 3 req/s anonymous, 10 req/s with an api key.
func NewLiteratureClient(cfg config.Acquisition) *LiteratureClient {
	ceiling := rate.Limit(3)
	if cfg.LiteratureAPIKey != "" {
		ceiling = rate.Limit(10)
	}
	retries := cfg.RetryAttempts
	if retries <= 0 {
		retries = 3
	}
	fanout := cfg.Fanout
	if fanout <= 0 {
		fanout = 4
	}
	return &LiteratureClient{
		endpoint:   strings.TrimRight(cfg.LiteratureEndpoint, "/"),
		email:      cfg.LiteratureContactEmail,
		apiKey:     cfg.LiteratureAPIKey,
		dateStart:  cfg.DateStart,
		dateEnd:    cfg.DateEnd,
		maxRetries: retries,
		fanout:     fanout,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(ceiling, 1),
	}
}

// Ping checks service reachability with a minimal search request.
func (c *LiteratureClient) Ping(ctx context.Context) error {
	_, err := c.searchPage(ctx, "spaceflight", 0, 1)
	return err
}

// Search pages through results for each term, then fetches each hit's
// metadata record, preserving hit order and deduplicating ids across terms.
func (c *LiteratureClient) Search(ctx context.Context, terms []string, maxPapers int) ([]*core.Paper, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, term := range terms {
		for offset := 0; len(ids) < maxPapers; offset += searchPageSize {
			page, err := c.searchPage(ctx, term, offset, searchPageSize)
			if err != nil {
				return nil, err
			}
			if len(page) == 0 {
				break
			}
			for _, id := range page {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		if len(ids) >= maxPapers {
			ids = ids[:maxPapers]
			break
		}
	}
	return c.FetchByIDs(ctx, ids)
}

// FetchByIDs retrieves metadata records for the given ids with bounded
// fan-out, preserving input order in the result.
func (c *LiteratureClient) FetchByIDs(ctx context.Context, ids []string) ([]*core.Paper, error) {
	log := logger.With("acquisition")
	papers := make([]*core.Paper, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	for i, id := range ids {
		g.Go(func() error {
			paper, err := c.fetchRecord(gctx, id)
			if err != nil {
				// A single unfetchable record is not fatal to the search.
				log.Warn().Str("id", id).Err(err).Msg("record fetch failed")
				return nil
			}
			papers[i] = paper
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []*core.Paper
	for _, p := range papers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

type esearchEnvelope struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (c *LiteratureClient) searchPage(ctx context.Context, term string, offset, limit int) ([]string, error) {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retstart", strconv.Itoa(offset))
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")
	params.Set("sort", "pub_date")
	if c.dateStart != "" || c.dateEnd != "" {
		params.Set("datetype", "pdat")
		if c.dateStart != "" {
			params.Set("mindate", c.dateStart)
		}
		if c.dateEnd != "" {
			params.Set("maxdate", c.dateEnd)
		}
	}

	body, err := c.get(ctx, c.endpoint+"/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var env esearchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, core.NewExternalServiceError("acquisition", "literature",
			fmt.Errorf("malformed search response: %w", err))
	}
	return env.Result.IDList, nil
}

// pubmedArticleSet mirrors the subset of the efetch XML payload the pipeline
// consumes.
type pubmedArticleSet struct {
	Articles []struct {
		Citation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title struct {
					Value string `xml:",innerxml"`
				} `xml:"ArticleTitle"`
				Abstract struct {
					Text []struct {
						Label string `xml:"Label,attr"`
						Value string `xml:",innerxml"`
					} `xml:"AbstractText"`
				} `xml:"Abstract"`
				Journal struct {
					Title string `xml:"Title"`
					Issue struct {
						PubDate struct {
							Year string `xml:"Year"`
						} `xml:"PubDate"`
					} `xml:"JournalIssue"`
				} `xml:"Journal"`
				Authors struct {
					Author []struct {
						LastName string `xml:"LastName"`
						ForeName string `xml:"ForeName"`
					} `xml:"Author"`
				} `xml:"AuthorList"`
			} `xml:"Article"`
			Mesh struct {
				Headings []struct {
					Descriptor string `xml:"DescriptorName"`
				} `xml:"MeshHeading"`
			} `xml:"MeshHeadingList"`
			OtherIDs []struct {
				Source string `xml:"Source,attr"`
				Value  string `xml:",chardata"`
			} `xml:"OtherID"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

func (c *LiteratureClient) fetchRecord(ctx context.Context, id string) (*core.Paper, error) {
	params := c.baseParams()
	params.Set("db", "pubmed")
	params.Set("id", id)
	params.Set("retmode", "xml")

	body, err := c.get(ctx, c.endpoint+"/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, core.NewExternalServiceError("acquisition", "literature",
			fmt.Errorf("malformed record %s: %w", id, err))
	}
	if len(set.Articles) == 0 {
		return nil, fmt.Errorf("record %s not found", id)
	}
	cit := set.Articles[0].Citation

	var abstract strings.Builder
	for _, part := range cit.Article.Abstract.Text {
		if abstract.Len() > 0 {
			abstract.WriteString(" ")
		}
		if part.Label != "" {
			abstract.WriteString(part.Label + ": ")
		}
		abstract.WriteString(stripMarkup(part.Value))
	}

	paper := &core.Paper{
		LiteratureID: "PMID:" + cit.PMID,
		Title:        stripMarkup(cit.Article.Title.Value),
		Abstract:     abstract.String(),
		Journal:      cit.Article.Journal.Title,
	}
	if y, err := strconv.Atoi(cit.Article.Journal.Issue.PubDate.Year); err == nil {
		paper.PublicationYear = y
	}
	for _, a := range cit.Article.Authors.Author {
		name := strings.TrimSpace(a.ForeName + " " + a.LastName)
		if name != "" {
			paper.Authors = append(paper.Authors, name)
		}
	}
	for _, h := range cit.Mesh.Headings {
		if h.Descriptor != "" {
			paper.Keywords = append(paper.Keywords, h.Descriptor)
		}
	}
	for _, oid := range cit.OtherIDs {
		if oid.Source != "" && strings.TrimSpace(oid.Value) != "" {
			if paper.SecondaryIDs == nil {
				paper.SecondaryIDs = map[string]string{}
			}
			paper.SecondaryIDs[oid.Source] = strings.TrimSpace(oid.Value)
		}
	}
	return paper, nil
}

func (c *LiteratureClient) baseParams() url.Values {
	params := url.Values{}
	params.Set("email", c.email)
	params.Set("tool", "astrobiomers")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return params
}

// get performs one rate-limited request with exponential backoff on transient
// failures (1s, 2s, 4s).
func (c *LiteratureClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("literature service returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("literature service returned %d", resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
	), uint64(c.maxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, core.NewExternalServiceError("acquisition", "literature", err)
	}
	return body, nil
}

// stripMarkup removes inline HTML/XML markup that the literature service
// embeds in titles and abstracts (<i>, <sup>, and friends).
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + s + "</div>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
