package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GeekHunter job board. The site is a React SPA; without a headless browser
// only the server-rendered portion of the listing is visible, so results can
// be thinner than what a full browser sees.
type GeekHunter struct {
	fetcher *Fetcher
	baseURL string
}

func NewGeekHunter(fetcher *Fetcher) *GeekHunter {
	return &GeekHunter{
		fetcher: fetcher,
		baseURL: "https://www.geekhunter.com.br",
	}
}

func (g *GeekHunter) Name() string { return "geekhunter" }

func (g *GeekHunter) Search(ctx context.Context, keyword, country string, limit int) ([]JobListing, error) {
	searchURL := g.baseURL + "/vagas?search=" + url.QueryEscape(keyword)

	html, err := g.fetcher.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	return g.parse(html, limit)
}

func (g *GeekHunter) parse(html string, limit int) ([]JobListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	cards := g.findJobCards(doc)
	seen := make(map[string]bool)
	var jobs []JobListing

	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if i >= limit*2 {
			return false
		}
		job, ok := g.parseCard(card, seen)
		if !ok {
			return true
		}
		jobs = append(jobs, job)
		return len(jobs) < limit
	})

	return jobs, nil
}

// findJobCards tries progressively looser selectors; the site's markup has
// changed more than once.
func (g *GeekHunter) findJobCards(doc *goquery.Document) *goquery.Selection {
	selectors := []string{
		`[data-testid="job-card"]`,
		".job-card",
		".vaga-card",
		`a[href*="/vagas/"]`,
	}
	for _, selector := range selectors {
		cards := doc.Find(selector)
		if cards.Length() > 0 {
			return cards
		}
	}
	return doc.Find("nothing")
}

func (g *GeekHunter) parseCard(card *goquery.Selection, seen map[string]bool) (JobListing, bool) {
	jobURL := g.extractURL(card)
	if jobURL == "" || seen[jobURL] {
		return JobListing{}, false
	}

	title := g.extractTitle(card)
	if len(title) < 5 {
		return JobListing{}, false
	}
	seen[jobURL] = true

	company := textOf(card, `.company, .empresa, [data-testid="company-name"]`)
	if company == "" {
		company = "Empresa nao identificada"
	}
	location := textOf(card, `.location, .local, [data-testid="location"]`)
	if location == "" {
		location = "Brasil"
	}
	salary := textOf(card, `.salary, .salario, [data-testid="salary"]`)

	var tags []string
	card.Find(".tag, .skill, .tech-stack span").Each(func(_ int, t *goquery.Selection) {
		if len(tags) < 10 {
			tags = append(tags, strings.TrimSpace(t.Text()))
		}
	})

	return JobListing{
		ID:       GenerateID(g.Name(), jobURL),
		Source:   g.Name(),
		Title:    title,
		Company:  company,
		URL:      jobURL,
		Location: location,
		JobType:  "On-site",
		Salary:   salary,
		Tags:     tags,
		Country:  "br",
	}, true
}

func (g *GeekHunter) extractURL(card *goquery.Selection) string {
	link := card
	if !card.Is("a") {
		link = card.Find(`a[href*="/vagas/"]`).First()
	}
	href, _ := link.Attr("href")
	if href == "" {
		return ""
	}
	if !strings.HasPrefix(href, "http") {
		href = g.baseURL + href
	}
	return href
}

func (g *GeekHunter) extractTitle(card *goquery.Selection) string {
	if title := textOf(card, `h2, h3, .job-title, [data-testid="job-title"]`); title != "" {
		return title
	}
	link := card
	if !card.Is("a") {
		link = card.Find("a").First()
	}
	return strings.TrimSpace(link.Text())
}

// textOf returns the trimmed text of the first match within sel, or "".
func textOf(sel *goquery.Selection, selector string) string {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

var _ JobScraper = (*GeekHunter)(nil)
