package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mrcosta/backoffice/models"
	"github.com/mrcosta/backoffice/scraper"
)

// Enrichment holds the extra details pulled from a university's official
// website. HTML parsing runs first; the AI micro-prompt only fills gaps.
type Enrichment struct {
	LogoURL      string `json:"logo_url,omitempty"`
	Description  string `json:"description,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	InstagramURL string `json:"instagram_url,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty"`
	FacebookURL  string `json:"facebook_url,omitempty"`
	TwitterURL   string `json:"twitter_url,omitempty"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	AIUsed       bool   `json:"ai_used"`
}

var socialPatterns = map[string]*regexp.Regexp{
	"instagram": regexp.MustCompile(`(?i)(?:instagram\.com|instagr\.am)/[^/?#]+`),
	"linkedin":  regexp.MustCompile(`(?i)linkedin\.com/(?:company|school|edu)/[^/?#]+`),
	"facebook":  regexp.MustCompile(`(?i)(?:facebook\.com|fb\.com)/[^/?#]+`),
	"twitter":   regexp.MustCompile(`(?i)(?:twitter\.com|x\.com)/[^/?#]+`),
	"youtube":   regexp.MustCompile(`(?i)youtube\.com/(?:c/|channel/|user/|@)?[^/?#]+`),
}

var logoSelectors = []string{
	"img.logo",
	"img.site-logo",
	"img#logo",
	".logo img",
	".site-logo img",
	`header img[src*="logo"]`,
	"a.logo img",
	".navbar-brand img",
}

// Domains that mark Portuguese institution websites as official.
var officialSitePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.edu\.pt`),
	regexp.MustCompile(`(?i)universidade.*\.pt`),
	regexp.MustCompile(`(?i)instituto.*\.pt`),
	regexp.MustCompile(`(?i)escola.*\.pt`),
	regexp.MustCompile(`(?i)ip[a-z]+\.pt`),
	regexp.MustCompile(`(?i)\bul\.pt`),
	regexp.MustCompile(`(?i)\bup\.pt`),
	regexp.MustCompile(`(?i)\buc\.pt`),
	regexp.MustCompile(`(?i)uminho\.pt`),
	regexp.MustCompile(`(?i)uevora\.pt`),
	regexp.MustCompile(`(?i)ualg\.pt`),
	regexp.MustCompile(`(?i)utad\.pt`),
	regexp.MustCompile(`(?i)\buab\.pt`),
	regexp.MustCompile(`(?i)nova\.pt`),
	regexp.MustCompile(`(?i)iscte.*\.pt`),
}

// Aggregators and social networks never count as an official site.
var skipSearchDomains = []string{
	"eduportugal", "dges.gov", "facebook", "linkedin",
	"instagram", "wikipedia", "youtube", "twitter",
	"x.com", "glassdoor", "indeed", "google",
}

// EnrichStats counts enrichment outcomes for the admin stats endpoint.
type EnrichStats struct {
	TotalEnriched int64 `json:"total_enriched"`
	HTMLOnly      int64 `json:"html_only"`
	AIUsed        int64 `json:"ai_used"`
	Failed        int64 `json:"failed"`
	CacheHits     int64 `json:"cache_hits"`
	TokensUsed    int64 `json:"tokens_used"`
}

// EnrichService fills in logos, social links and contact details for
// universities by visiting their official websites.
type EnrichService struct {
	fetcher *scraper.Fetcher
	gemini  *GeminiService
	cache   *scraper.Cache[Enrichment]

	totalEnriched atomic.Int64
	htmlOnly      atomic.Int64
	aiUsed        atomic.Int64
	failed        atomic.Int64
	cacheHits     atomic.Int64
	tokensUsed    atomic.Int64
}

func NewEnrichService(fetcher *scraper.Fetcher, gemini *GeminiService, cacheTTL time.Duration) *EnrichService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * 24 * time.Hour
	}
	return &EnrichService{
		fetcher: fetcher,
		gemini:  gemini,
		cache:   scraper.NewCache[Enrichment](cacheTTL),
	}
}

// Enrich resolves the university's website (searching for it when unknown)
// and fills its empty enrichment fields in place.
func (s *EnrichService) Enrich(ctx context.Context, university *models.University) error {
	website := university.Website
	if website == "" {
		found, err := s.SearchWebsite(ctx, university.Name, university.Country)
		if err != nil {
			s.failed.Add(1)
			return fmt.Errorf("website search failed: %w", err)
		}
		if found == "" {
			s.failed.Add(1)
			return fmt.Errorf("no website found for %s", university.Name)
		}
		website = found
		university.Website = website
	}

	enrichment, err := s.EnrichWebsite(ctx, website)
	if err != nil {
		s.failed.Add(1)
		return err
	}

	applyEnrichment(university, enrichment)
	return nil
}

// EnrichWebsite extracts enrichment data from one website, consulting the
// cache first.
func (s *EnrichService) EnrichWebsite(ctx context.Context, website string) (*Enrichment, error) {
	if cached, ok := s.cache.Get(website); ok {
		s.cacheHits.Add(1)
		return &cached, nil
	}

	html, err := s.fetcher.Get(ctx, website)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", website, err)
	}

	enrichment := extractFromHTML(html, website)

	// The AI pass only runs when the cheap pass left important gaps.
	missingImportant := enrichment.LogoURL == "" ||
		(enrichment.InstagramURL == "" && enrichment.LinkedInURL == "" && enrichment.FacebookURL == "")

	if missingImportant && s.gemini != nil && s.gemini.Available() {
		if aiData := s.extractWithAI(ctx, html, website); aiData != nil {
			mergeEnrichments(enrichment, aiData)
			enrichment.AIUsed = true
			s.aiUsed.Add(1)
		}
	} else {
		s.htmlOnly.Add(1)
	}

	s.totalEnriched.Add(1)
	s.cache.Set(website, *enrichment)
	return enrichment, nil
}

// SearchWebsite looks up a university's official website through the
// DuckDuckGo HTML endpoint, which needs no API key.
func (s *EnrichService) SearchWebsite(ctx context.Context, name, country string) (string, error) {
	if country == "" {
		country = "Portugal"
	}
	query := url.QueryEscape(name + " site oficial " + country)
	searchURL := "https://html.duckduckgo.com/html/?q=" + query

	html, err := s.fetcher.Get(ctx, searchURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var candidates []string
	doc.Find(".result__url, a.result__a, a.result__snippet").Each(func(i int, sel *goquery.Selection) {
		if i >= 15 {
			return
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			href = strings.TrimSpace(sel.Text())
		}
		if href != "" {
			candidates = append(candidates, href)
		}
	})

	for _, href := range candidates {
		if skipSearchResult(href) {
			continue
		}
		for _, pattern := range officialSitePatterns {
			if pattern.MatchString(href) {
				return cleanWebsiteURL(href), nil
			}
		}
	}

	// Fallback: first .pt result that is not an aggregator.
	for _, href := range candidates {
		if strings.Contains(strings.ToLower(href), ".pt") && !skipSearchResult(href) {
			return cleanWebsiteURL(href), nil
		}
	}

	return "", nil
}

// Stats returns a snapshot of the enrichment counters.
func (s *EnrichService) Stats() EnrichStats {
	return EnrichStats{
		TotalEnriched: s.totalEnriched.Load(),
		HTMLOnly:      s.htmlOnly.Load(),
		AIUsed:        s.aiUsed.Load(),
		Failed:        s.failed.Load(),
		CacheHits:     s.cacheHits.Load(),
		TokensUsed:    s.tokensUsed.Load(),
	}
}

func skipSearchResult(href string) bool {
	lower := strings.ToLower(href)
	for _, skip := range skipSearchDomains {
		if strings.Contains(lower, skip) {
			return true
		}
	}
	return false
}

func cleanWebsiteURL(href string) string {
	if !strings.HasPrefix(href, "http") {
		href = "https://" + strings.TrimLeft(href, "/")
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return strings.TrimRight(href, "/")
}

// extractFromHTML pulls enrichment data out of the page without spending
// any AI tokens.
func extractFromHTML(html, baseURL string) *Enrichment {
	enrichment := &Enrichment{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return enrichment
	}

	if content, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && content != "" {
		enrichment.LogoURL = resolveRef(baseURL, content)
	}

	if enrichment.LogoURL == "" {
		for _, selector := range logoSelectors {
			if src, ok := doc.Find(selector).First().Attr("src"); ok && src != "" {
				enrichment.LogoURL = resolveRef(baseURL, src)
				break
			}
		}
	}

	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && content != "" {
		enrichment.Description = truncate(content, 500)
	}
	if enrichment.Description == "" {
		if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
			enrichment.Description = truncate(content, 500)
		}
	}

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}

		lower := strings.ToLower(href)
		switch {
		case strings.HasPrefix(lower, "mailto:"):
			if enrichment.Email == "" {
				email := strings.TrimPrefix(href[len("mailto:"):], " ")
				if i := strings.Index(email, "?"); i >= 0 {
					email = email[:i]
				}
				enrichment.Email = email
			}
			return
		case strings.HasPrefix(lower, "tel:"):
			if enrichment.Phone == "" {
				enrichment.Phone = href[len("tel:"):]
			}
			return
		}

		for platform, pattern := range socialPatterns {
			if !pattern.MatchString(href) {
				continue
			}
			full := href
			if !strings.HasPrefix(full, "http") {
				full = "https://" + strings.TrimLeft(full, "/")
			}
			switch platform {
			case "instagram":
				if enrichment.InstagramURL == "" {
					enrichment.InstagramURL = full
				}
			case "linkedin":
				if enrichment.LinkedInURL == "" {
					enrichment.LinkedInURL = full
				}
			case "facebook":
				if enrichment.FacebookURL == "" {
					enrichment.FacebookURL = full
				}
			case "twitter":
				if enrichment.TwitterURL == "" {
					enrichment.TwitterURL = full
				}
			case "youtube":
				if enrichment.YouTubeURL == "" {
					enrichment.YouTubeURL = full
				}
			}
			break
		}
	})

	return enrichment
}

// extractWithAI runs a micro-prompt over the page's header/footer/nav text,
// where social links usually live. Returns nil on any failure so the HTML
// pass result still stands.
func (s *EnrichService) extractWithAI(ctx context.Context, html, baseURL string) *Enrichment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()

	var sections []string
	doc.Find("header, footer, nav, aside").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			sections = append(sections, text)
		}
	})
	if len(sections) == 0 {
		sections = append(sections, truncate(strings.TrimSpace(doc.Find("body").Text()), 3000))
	}

	textContent := truncate(strings.Join(sections, "\n"), 4000)

	prompt := fmt.Sprintf(`Extraia APENAS os seguintes dados do site desta universidade. Responda APENAS com JSON valido, sem explicacoes.

URL: %s

Texto do site:
%s

Extraia (deixe null se nao encontrar):
- logo_url: URL da imagem do logo
- instagram_url: Link do Instagram (formato: https://instagram.com/...)
- linkedin_url: Link do LinkedIn (formato: https://linkedin.com/...)
- facebook_url: Link do Facebook
- twitter_url: Link do Twitter/X
- youtube_url: Link do YouTube
- email: Email de contacto principal
- phone: Telefone principal

JSON:`, baseURL, textContent)

	var result Enrichment
	tokens, err := s.gemini.GenerateJSON(ctx, "You extract structured contact data from website text.", prompt, &result)
	s.tokensUsed.Add(tokens)
	if err != nil {
		return nil
	}
	return &result
}

// mergeEnrichments fills dst's gaps from src. HTML-parsed values win over
// AI output.
func mergeEnrichments(dst, src *Enrichment) {
	if dst.LogoURL == "" {
		dst.LogoURL = src.LogoURL
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.InstagramURL == "" {
		dst.InstagramURL = src.InstagramURL
	}
	if dst.LinkedInURL == "" {
		dst.LinkedInURL = src.LinkedInURL
	}
	if dst.FacebookURL == "" {
		dst.FacebookURL = src.FacebookURL
	}
	if dst.TwitterURL == "" {
		dst.TwitterURL = src.TwitterURL
	}
	if dst.YouTubeURL == "" {
		dst.YouTubeURL = src.YouTubeURL
	}
}

// applyEnrichment copies extracted values onto the university, never
// overwriting values the admin already set.
func applyEnrichment(u *models.University, e *Enrichment) {
	if u.LogoURL == "" {
		u.LogoURL = e.LogoURL
	}
	if u.Description == "" {
		u.Description = e.Description
	}
	if u.ContactEmail == "" {
		u.ContactEmail = e.Email
	}
	if u.ContactPhone == "" {
		u.ContactPhone = e.Phone
	}
	if u.InstagramURL == "" {
		u.InstagramURL = e.InstagramURL
	}
	if u.LinkedInURL == "" {
		u.LinkedInURL = e.LinkedInURL
	}
	if u.FacebookURL == "" {
		u.FacebookURL = e.FacebookURL
	}
	if u.TwitterURL == "" {
		u.TwitterURL = e.TwitterURL
	}
	if u.YouTubeURL == "" {
		u.YouTubeURL = e.YouTubeURL
	}
	if e.AIUsed {
		u.EnrichAIUsed = true
	}
}

func resolveRef(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
