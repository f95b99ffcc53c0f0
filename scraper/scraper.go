package scraper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// JobListing is a single job offer scraped from a job board.
type JobListing struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	CompanyLogo string     `json:"company_logo,omitempty"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Location    string     `json:"location,omitempty"`
	JobType     string     `json:"job_type,omitempty"` // Remote, Hybrid, On-site
	Salary      string     `json:"salary,omitempty"`
	Tags        []string   `json:"tags"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	Country     string     `json:"country,omitempty"`
}

// UniversityListing is an institution scraped from a directory source.
type UniversityListing struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Type        string `json:"type,omitempty"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// CourseListing is a course scraped from a directory source, tied to its
// university by name/slug (resolution to a database row happens on import).
type CourseListing struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Code           string `json:"code,omitempty"`
	Level          string `json:"level,omitempty"`
	Duration       string `json:"duration,omitempty"`
	City           string `json:"city,omitempty"`
	Vacancies      int    `json:"vacancies,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	UniversityName string `json:"university_name"`
	UniversitySlug string `json:"university_slug"`
}

// JobScraper searches a single job board.
type JobScraper interface {
	Name() string
	Search(ctx context.Context, keyword, country string, limit int) ([]JobListing, error)
}

// Registry holds the configured job scrapers in registration order.
type Registry struct {
	order    []string
	scrapers map[string]JobScraper
}

func NewRegistry(scrapers ...JobScraper) *Registry {
	r := &Registry{scrapers: make(map[string]JobScraper)}
	for _, s := range scrapers {
		r.order = append(r.order, s.Name())
		r.scrapers[s.Name()] = s
	}
	return r
}

// Get returns the scraper registered under name, or nil.
func (r *Registry) Get(name string) JobScraper {
	return r.scrapers[name]
}

// Names returns the registered scraper names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns the registered scrapers in registration order.
func (r *Registry) All() []JobScraper {
	out := make([]JobScraper, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.scrapers[name])
	}
	return out
}

// GenerateID builds a stable listing id: "{source}-{md5(uniquePart)[:12]}".
func GenerateID(source, uniquePart string) string {
	sum := md5.Sum([]byte(uniquePart))
	return source + "-" + hex.EncodeToString(sum[:])[:12]
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)

	accentReplacer = strings.NewReplacer(
		"á", "a", "à", "a", "ã", "a", "â", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u", "ü", "u",
		"ç", "c",
	)
)

// Slugify converts a Portuguese display name into a URL-safe slug.
func Slugify(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = accentReplacer.Replace(slug)
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
