package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/config"
)

const efetchPayload = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345</PMID>
      <Article>
        <ArticleTitle>Microgravity induces bone loss in <i>mice</i></ArticleTitle>
        <Abstract>
          <AbstractText>Microgravity induces bone loss in mice.</AbstractText>
          <AbstractText Label="RESULTS">MYOD1 is downregulated during spaceflight.</AbstractText>
        </Abstract>
        <Journal>
          <JournalIssue><PubDate><Year>2017</Year></PubDate></JournalIssue>
          <Title>npj Microgravity</Title>
        </Journal>
        <AuthorList>
          <Author><LastName>Ohira</LastName><ForeName>Takashi</ForeName></Author>
        </AuthorList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName>Weightlessness</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newLiteratureServer(t *testing.T, fail *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail != nil && fail.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/esearch.fcgi":
			if r.URL.Query().Get("email") == "" {
				t.Error("search request missing contact email")
			}
			if r.URL.Query().Get("retstart") == "0" {
				fmt.Fprint(w, `{"esearchresult":{"idlist":["12345"]}}`)
			} else {
				fmt.Fprint(w, `{"esearchresult":{"idlist":[]}}`)
			}
		case "/efetch.fcgi":
			fmt.Fprint(w, efetchPayload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func literatureConfig(endpoint string) config.Acquisition {
	return config.Acquisition{
		LiteratureEnabled:      true,
		LiteratureContactEmail: "lab@example.org",
		LiteratureEndpoint:     endpoint,
		MaxPapers:              10,
		RetryAttempts:          3,
		Fanout:                 2,
	}
}

func TestLiteratureSearchAndFetch(t *testing.T) {
	server := newLiteratureServer(t, nil)
	defer server.Close()

	client := NewLiteratureClient(literatureConfig(server.URL))
	papers, err := client.Search(context.Background(), []string{"microgravity"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	p := papers[0]
	if p.LiteratureID != "PMID:12345" {
		t.Errorf("literature id: %s", p.LiteratureID)
	}
	// Inline markup from the service must not survive.
	if p.Title != "Microgravity induces bone loss in mice" {
		t.Errorf("title not cleaned: %q", p.Title)
	}
	if p.PublicationYear != 2017 {
		t.Errorf("publication year: %d", p.PublicationYear)
	}
	if p.Journal != "npj Microgravity" {
		t.Errorf("journal: %q", p.Journal)
	}
	if len(p.Authors) != 1 || p.Authors[0] != "Takashi Ohira" {
		t.Errorf("authors: %v", p.Authors)
	}
	if len(p.Keywords) != 1 || p.Keywords[0] != "Weightlessness" {
		t.Errorf("keywords: %v", p.Keywords)
	}
	// Labeled abstract sections are concatenated with their labels.
	want := "Microgravity induces bone loss in mice. RESULTS: MYOD1 is downregulated during spaceflight."
	if p.Abstract != want {
		t.Errorf("abstract = %q, want %q", p.Abstract, want)
	}
}

func TestLiteratureRetriesTransientFailures(t *testing.T) {
	var fail atomic.Int32
	fail.Store(2) // first two requests 503, then healthy
	server := newLiteratureServer(t, &fail)
	defer server.Close()

	client := NewLiteratureClient(literatureConfig(server.URL))
	ids, err := client.searchPage(context.Background(), "microgravity", 0, 10)
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
}

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"plain text":              "plain text",
		"with <i>italics</i>":     "with italics",
		"H<sub>2</sub>O exposure": "H2O exposure",
	}
	for in, want := range cases {
		if got := stripMarkup(in); got != want {
			t.Errorf("stripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}
