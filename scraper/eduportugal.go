package scraper

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EduPortugal scrapes eduportugal.eu: institutions under
// /instituicoes-de-ensino/ and courses under /cursos-estudo/{level}/, both
// paginated with /page/{n}/ suffixes.
type EduPortugal struct {
	fetcher  *Fetcher
	baseURL  string
	MaxPages int
}

// EduPortugalLevels maps course level slugs to their listing paths.
var EduPortugalLevels = map[string]string{
	"licenciatura":       "/cursos-estudo/licenciatura/",
	"mestrado":           "/cursos-estudo/mestrado/",
	"mestrado-integrado": "/cursos-estudo/mestrado-integrado/",
	"doutorado":          "/cursos-estudo/doutorado/",
	"pos-doutorado":      "/cursos-estudo/pos-doutorado/",
	"mba":                "/cursos-estudo/mba/",
	"pos-graduacao":      "/cursos-estudo/pos-graduacao/",
	"curso-tecnico":      "/cursos-estudo/cursos-tecnicos-profissionais/",
	"b-learning":         "/cursos-estudo/b-learning/",
	"e-learning":         "/cursos-estudo/e-learning/",
	"formacao-executiva": "/cursos-estudo/formacao-executiva-mba/",
	"especializacao":     "/cursos-estudo/cursos-de-especializacao/",
}

// eduPortugalCities is used to pull a known city name out of free-form
// location text.
var eduPortugalCities = []string{
	"Lisboa", "Porto", "Coimbra", "Braga", "Aveiro", "Faro", "Évora",
	"Setúbal", "Leiria", "Viseu", "Bragança", "Guarda", "Beja",
	"Castelo Branco", "Santarém", "Viana do Castelo", "Vila Real",
	"Portalegre", "Funchal", "Ponta Delgada", "Covilhã", "Tomar", "Águeda",
}

var eduPageNum = regexp.MustCompile(`/page/(\d+)/`)

func NewEduPortugal(fetcher *Fetcher) *EduPortugal {
	return &EduPortugal{
		fetcher:  fetcher,
		baseURL:  "https://eduportugal.eu",
		MaxPages: 50,
	}
}

func (e *EduPortugal) Name() string { return "eduportugal" }

// ScrapeUniversities walks the paginated institutions listing.
func (e *EduPortugal) ScrapeUniversities(ctx context.Context, progress func(page, found int)) ([]UniversityListing, error) {
	listURL := e.baseURL + "/instituicoes-de-ensino/"

	html, err := e.fetcher.Get(ctx, listURL)
	if err != nil {
		return nil, err
	}

	universities := e.parseUniversitiesPage(html)
	totalPages := e.totalPages(html)
	if progress != nil {
		progress(1, len(universities))
	}

	for page := 2; page <= totalPages && page <= e.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return universities, err
		}

		html, err := e.fetcher.Get(ctx, listURL+"page/"+strconv.Itoa(page)+"/")
		if err != nil {
			slog.Warn("Failed to fetch universities page", "source", e.Name(), "page", page, "error", err)
			continue
		}

		pageUnis := e.parseUniversitiesPage(html)
		if len(pageUnis) == 0 {
			break
		}
		universities = append(universities, pageUnis...)
		if progress != nil {
			progress(page, len(universities))
		}
	}

	slog.Info("EduPortugal universities scrape finished", "source", e.Name(), "found", len(universities))
	return universities, nil
}

// ScrapeCourses walks the paginated course listing for each requested level
// (all known levels when nil).
func (e *EduPortugal) ScrapeCourses(ctx context.Context, levels []string, progress func(level string, page, found int)) ([]CourseListing, error) {
	if len(levels) == 0 {
		for level := range EduPortugalLevels {
			levels = append(levels, level)
		}
	}

	var courses []CourseListing
	for _, level := range levels {
		path, ok := EduPortugalLevels[level]
		if !ok {
			slog.Warn("Unknown course level, skipping", "source", e.Name(), "level", level)
			continue
		}

		levelCourses, err := e.scrapeCoursesByLevel(ctx, level, path, progress)
		courses = append(courses, levelCourses...)
		if err != nil {
			return courses, err
		}
	}

	slog.Info("EduPortugal courses scrape finished", "source", e.Name(), "found", len(courses))
	return courses, nil
}

func (e *EduPortugal) scrapeCoursesByLevel(ctx context.Context, level, path string, progress func(level string, page, found int)) ([]CourseListing, error) {
	listURL := e.baseURL + path

	html, err := e.fetcher.Get(ctx, listURL)
	if err != nil {
		slog.Warn("Failed to fetch courses listing", "source", e.Name(), "level", level, "error", err)
		return nil, nil
	}

	courses := e.parseCoursesPage(html, level)
	totalPages := e.totalPages(html)
	if progress != nil {
		progress(level, 1, len(courses))
	}

	for page := 2; page <= totalPages && page <= e.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return courses, err
		}

		html, err := e.fetcher.Get(ctx, listURL+"page/"+strconv.Itoa(page)+"/")
		if err != nil {
			slog.Warn("Failed to fetch courses page", "source", e.Name(), "level", level, "page", page, "error", err)
			continue
		}

		pageCourses := e.parseCoursesPage(html, level)
		if len(pageCourses) == 0 {
			break
		}
		courses = append(courses, pageCourses...)
		if progress != nil {
			progress(level, page, len(courses))
		}
	}

	return courses, nil
}

// totalPages reads the highest page number referenced by pagination links.
func (e *EduPortugal) totalPages(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1
	}

	total := 1
	doc.Find("a.page-numbers, .pagination a, a[href*='/page/']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if m := eduPageNum.FindStringSubmatch(href); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > total {
				total = n
			}
		}
	})
	return total
}

func (e *EduPortugal) parseUniversitiesPage(html string) []UniversityListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	cards := e.findCards(doc, "article.type-instituicao, .institution-card, .university-item, .listing-item, article[class*='instituicao'], .wpbf-post-style-boxed, .elementor-post, .jet-listing-grid__item, .e-loop-item, .jet-posts__item")

	var universities []UniversityListing
	seen := make(map[string]bool)

	cards.Each(func(_ int, card *goquery.Selection) {
		nameLink := card.Find("h2 a, h3 a, .entry-title a, .institution-name a, a.listing-title").First()
		if nameLink.Length() == 0 {
			return
		}

		name := strings.TrimSpace(nameLink.Text())
		href, _ := nameLink.Attr("href")
		if name == "" || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = e.baseURL + href
		}
		if seen[href] {
			return
		}
		seen[href] = true

		slug := lastPathSegment(href)

		city := ""
		if location := textOf(card, ".location, .city, .cidade, .address, [class*='location'], [class*='cidade']"); location != "" {
			city = extractCity(location)
		}

		logoURL := ""
		if img := card.Find("img.logo, .institution-logo img, .listing-img img, .post-thumbnail img, img").First(); img.Length() > 0 {
			logoURL, _ = img.Attr("src")
			if logoURL == "" {
				logoURL, _ = img.Attr("data-src")
			}
			if logoURL != "" && !strings.HasPrefix(logoURL, "http") {
				logoURL = e.baseURL + logoURL
			}
		}

		universities = append(universities, UniversityListing{
			ID:          GenerateID(e.Name(), slug),
			Name:        name,
			Slug:        slug,
			City:        city,
			Description: textOf(card, ".excerpt, .entry-summary, .description, .listing-excerpt, p"),
			LogoURL:     logoURL,
			SourceURL:   href,
		})
	})

	// Fallback: extract straight from institution links when no cards match.
	if len(universities) == 0 {
		universities = e.universitiesFromLinks(doc, seen)
	}

	return universities
}

// universitiesFromLinks is the markup-agnostic fallback: any deep link under
// /instituicoes-de-ensino/ counts as an institution.
func (e *EduPortugal) universitiesFromLinks(doc *goquery.Document, seen map[string]bool) []UniversityListing {
	var universities []UniversityListing

	doc.Find(`a[href*="/instituicoes-de-ensino/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" || strings.Count(href, "/") <= 4 || seen[href] {
			return
		}
		seen[href] = true

		name := strings.TrimSpace(link.Text())
		if len(name) < 3 {
			name = strings.TrimSpace(link.Parent().Text())
		}
		if len(name) < 3 {
			return
		}
		if len(name) > 200 {
			name = name[:200]
		}

		slug := lastPathSegment(href)
		if slug == "" || slug == "instituicoes-de-ensino" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = e.baseURL + href
		}

		universities = append(universities, UniversityListing{
			ID:        GenerateID(e.Name(), slug),
			Name:      name,
			Slug:      slug,
			SourceURL: href,
		})
	})

	return universities
}

func (e *EduPortugal) parseCoursesPage(html, level string) []CourseListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	cards := e.findCards(doc, "article.type-curso, .course-card, .course-item, .listing-item, article[class*='curso'], .elementor-post, .jet-listing-grid__item, .e-loop-item, .jet-posts__item")

	var courses []CourseListing
	seen := make(map[string]bool)

	cards.Each(func(_ int, card *goquery.Selection) {
		nameLink := card.Find("h2 a, h3 a, .entry-title a, .course-name a, a.listing-title").First()
		if nameLink.Length() == 0 {
			return
		}

		name := strings.TrimSpace(nameLink.Text())
		href, _ := nameLink.Attr("href")
		if name == "" || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = e.baseURL + href
		}
		if seen[href] {
			return
		}
		seen[href] = true

		slug := lastPathSegment(href)
		universityName := textOf(card, ".university, .institution, .instituicao, [class*='instituicao'], [class*='university']")

		city := ""
		if location := textOf(card, ".location, .city, .cidade, [class*='location'], [class*='cidade']"); location != "" {
			city = extractCity(location)
		}

		courses = append(courses, CourseListing{
			ID:             GenerateID(e.Name(), slug),
			Name:           name,
			Slug:           slug,
			Level:          level,
			Duration:       textOf(card, ".duration, .duracao, [class*='duracao'], [class*='duration']"),
			City:           city,
			SourceURL:      href,
			UniversityName: universityName,
			UniversitySlug: Slugify(universityName),
		})
	})

	return courses
}

// findCards tries the specific selectors first, then generic articles.
func (e *EduPortugal) findCards(doc *goquery.Document, selectors string) *goquery.Selection {
	cards := doc.Find(selectors)
	if cards.Length() > 0 {
		return cards
	}
	return doc.Find("article")
}

func lastPathSegment(href string) string {
	trimmed := strings.TrimRight(href, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func extractCity(text string) string {
	for _, city := range eduPortugalCities {
		if strings.Contains(text, city) {
			return city
		}
	}
	return strings.TrimSpace(text)
}
