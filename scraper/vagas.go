package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// VagasComBr job board. Listings are anchored on "a.link-detalhes-vaga"
// links; company, location and level come from the surrounding container.
type VagasComBr struct {
	fetcher *Fetcher
	baseURL string
}

func NewVagasComBr(fetcher *Fetcher) *VagasComBr {
	return &VagasComBr{
		fetcher: fetcher,
		baseURL: "https://www.vagas.com.br",
	}
}

func (v *VagasComBr) Name() string { return "vagascombr" }

func (v *VagasComBr) Search(ctx context.Context, keyword, country string, limit int) ([]JobListing, error) {
	slug := strings.ReplaceAll(keyword, " ", "-")
	searchURL := v.baseURL + "/vagas-de-" + slug

	html, err := v.fetcher.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	return v.parse(html, limit)
}

func (v *VagasComBr) parse(html string, limit int) ([]JobListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var jobs []JobListing

	doc.Find("a.link-detalhes-vaga").EachWithBreak(func(i int, link *goquery.Selection) bool {
		if i >= limit*2 {
			return false
		}
		job, ok := v.parseLink(link, seen)
		if !ok {
			return true
		}
		jobs = append(jobs, job)
		return len(jobs) < limit
	})

	return jobs, nil
}

func (v *VagasComBr) parseLink(link *goquery.Selection, seen map[string]bool) (JobListing, bool) {
	href, _ := link.Attr("href")
	if href == "" {
		return JobListing{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = v.baseURL + href
	}

	title, _ := link.Attr("title")
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if title == "" || seen[href] {
		return JobListing{}, false
	}
	seen[href] = true

	// The parent li/div carries company, location and seniority level.
	container := link.Closest("li")
	if container.Length() == 0 {
		container = link.Closest("div")
	}

	company := textOf(container, ".emprVaga, .empresa")
	if company == "" {
		company = "Empresa confidencial"
	}
	location := textOf(container, ".vaga-local, .local")
	if location == "" {
		location = "Brasil"
	}
	level := textOf(container, ".nivelVaga, .nivel")

	var description string
	var tags []string
	if level != "" {
		description = "Nivel: " + level
		tags = []string{level}
	}

	return JobListing{
		ID:          GenerateID(v.Name(), href),
		Source:      v.Name(),
		Title:       title,
		Company:     company,
		Description: description,
		URL:         href,
		Location:    location,
		JobType:     "On-site",
		Tags:        tags,
		Country:     "br",
	}, true
}

var _ JobScraper = (*VagasComBr)(nil)
