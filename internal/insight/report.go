package insight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/resilience"
	"github.com/sells-group/school-intel/pkg/jina"
	"github.com/sells-group/school-intel/pkg/perplexity"
)

// ReportHost is the site inspection reports are published on.
const ReportHost = "reports.ofsted.gov.uk"

const reportPrefix = "https://" + ReportHost + "/"

// maxReportChars bounds the report text sent to the model.
const maxReportChars = 60_000

var reportURLPattern = regexp.MustCompile(`https://reports\.ofsted\.gov\.uk/[^\s"'<>()\]]+`)

// Report is the located and extracted text of an inspection report.
type Report struct {
	URL     string
	Title   string
	Content string
}

// ReportFinder locates the latest inspection report for a school and reads
// its text. Jina search is tried first, then Perplexity; reading goes through
// the Jina reader with a local readability fallback. Either client may be
// nil. Each upstream sits behind its own circuit breaker.
type ReportFinder struct {
	jina        jina.Client
	pplx        perplexity.Client
	http        *http.Client
	jinaBreaker *resilience.Breaker
	pplxBreaker *resilience.Breaker
}

// FinderOption configures a ReportFinder.
type FinderOption func(*ReportFinder)

// WithHTTPClient sets the client used for the local readability fallback.
func WithHTTPClient(hc *http.Client) FinderOption {
	return func(f *ReportFinder) { f.http = hc }
}

// WithBreakerOptions configures the per-upstream circuit breakers.
func WithBreakerOptions(opts ...resilience.Option) FinderOption {
	return func(f *ReportFinder) {
		f.jinaBreaker = resilience.New("jina", opts...)
		f.pplxBreaker = resilience.New("perplexity", opts...)
	}
}

// NewReportFinder creates a finder.
func NewReportFinder(jc jina.Client, pc perplexity.Client, opts ...FinderOption) *ReportFinder {
	f := &ReportFinder{
		jina:        jc,
		pplx:        pc,
		http:        &http.Client{Timeout: 30 * time.Second},
		jinaBreaker: resilience.New("jina"),
		pplxBreaker: resilience.New("perplexity"),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Locate returns the report URL for the school.
func (f *ReportFinder) Locate(ctx context.Context, name, urn string) (string, error) {
	log := zap.L().With(zap.String("school", name), zap.String("urn", urn))

	if f.jina != nil {
		resp, err := resilience.Call(ctx, f.jinaBreaker, func(ctx context.Context) (*jina.SearchResponse, error) {
			return f.jina.Search(ctx, fmt.Sprintf("%s %s Ofsted inspection report", name, urn),
				jina.WithSiteFilter(ReportHost))
		})
		if err != nil {
			log.Debug("insight: jina search failed, trying perplexity", zap.Error(err))
		} else {
			for _, r := range resp.Data {
				if strings.HasPrefix(r.URL, reportPrefix) {
					return r.URL, nil
				}
			}
		}
	}

	if f.pplx != nil {
		temp := 0.0
		req := perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "user", Content: fmt.Sprintf(locateReportPrompt, name, urn)},
			},
			Temperature:        &temp,
			SearchDomainFilter: []string{ReportHost},
		}
		resp, err := resilience.Call(ctx, f.pplxBreaker, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
			return f.pplx.ChatCompletion(ctx, req)
		})
		if err != nil {
			log.Debug("insight: perplexity lookup failed", zap.Error(err))
		} else {
			if u, ok := resp.CitationWithPrefix(reportPrefix); ok {
				return u, nil
			}
			if u := reportURLPattern.FindString(resp.Text()); u != "" {
				return strings.TrimRight(u, ".,;"), nil
			}
		}
	}

	return "", eris.Errorf("insight: no inspection report found for %s", name)
}

// Read fetches the report text at reportURL.
func (f *ReportFinder) Read(ctx context.Context, reportURL string) (*Report, error) {
	if f.jina != nil {
		resp, err := resilience.Call(ctx, f.jinaBreaker, func(ctx context.Context) (*jina.ReadResponse, error) {
			return f.jina.Read(ctx, reportURL, jina.WithTargetSelector("main"))
		})
		if err == nil && strings.TrimSpace(resp.Data.Content) != "" {
			return &Report{URL: reportURL, Title: resp.Data.Title, Content: resp.Data.Content}, nil
		}
		zap.L().Debug("insight: jina read failed, falling back to readability",
			zap.String("url", reportURL), zap.Error(err))
	}
	return f.readLocal(ctx, reportURL)
}

func (f *ReportFinder) readLocal(ctx context.Context, reportURL string) (*Report, error) {
	pageURL, err := url.Parse(reportURL)
	if err != nil {
		return nil, eris.Wrap(err, "insight: parse report url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "insight: create report request")
	}
	req.Header.Set("User-Agent", "school-intel/1.0")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "insight: fetch report")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("insight: fetch report: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, 10<<20), pageURL)
	if err != nil {
		return nil, eris.Wrap(err, "insight: extract report text")
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, eris.New("insight: report page has no readable text")
	}
	return &Report{URL: reportURL, Title: article.Title, Content: text}, nil
}

// truncateReport cuts content to maxReportChars on a rune boundary.
func truncateReport(content string) string {
	if len(content) <= maxReportChars {
		return content
	}
	cut := maxReportChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
