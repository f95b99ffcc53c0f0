package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
)

// DGES scrapes dges.gov.pt, the official directory of Portuguese higher
// education. Index pages are grouped by region; each institution row (4-digit
// code) is followed by its course rows (detcursopi links). Pages are served
// in Windows-1252.
type DGES struct {
	fetcher *Fetcher
	baseURL string
}

// DGESRegions maps region codes to display names, as used by the
// indest.asp?reg= index pages.
var DGESRegions = map[string]string{
	"11": "Lisboa",
	"12": "Centro",
	"13": "Norte",
	"14": "Alentejo",
	"15": "Algarve",
	"16": "Açores",
	"17": "Madeira",
}

// dgesInstitutionTypes maps section headings to normalized type slugs.
var dgesInstitutionTypes = map[string]string{
	"ensino superior público universitário": "publica_universitario",
	"ensino superior público politécnico":   "publica_politecnico",
	"ensino superior privado universitário": "privada_universitario",
	"ensino superior privado politécnico":   "privada_politecnico",
}

var (
	dgesInstCode = regexp.MustCompile(`^\d{4}`)
	dgesLevelTag = regexp.MustCompile(`\[([^\]]+)\]`)
	dgesTrailNum = regexp.MustCompile(`(\d+)\s*$`)
)

func NewDGES(fetcher *Fetcher) *DGES {
	return &DGES{
		fetcher: fetcher,
		baseURL: "https://www.dges.gov.pt",
	}
}

func (d *DGES) Name() string { return "dges" }

// ScrapeAll walks the given regions (all of them when nil) and returns every
// institution and course found. A failing region is logged and skipped so the
// rest of the run continues.
func (d *DGES) ScrapeAll(ctx context.Context, regions []string, progress func(region string, universities, courses int)) ([]UniversityListing, []CourseListing, error) {
	if len(regions) == 0 {
		for code := range DGESRegions {
			regions = append(regions, code)
		}
	}

	var universities []UniversityListing
	var courses []CourseListing

	for _, code := range regions {
		if err := ctx.Err(); err != nil {
			return universities, courses, err
		}

		regionName := DGESRegions[code]
		if regionName == "" {
			regionName = code
		}
		slog.Info("Scraping DGES region", "source", d.Name(), "region", regionName, "code", code)

		pageURL := d.baseURL + "/guias/indest.asp?reg=" + code
		html, err := d.fetchLatin1(ctx, pageURL)
		if err != nil {
			slog.Error("Failed to fetch DGES region", "source", d.Name(), "region", regionName, "error", err)
			continue
		}

		regionUnis, regionCourses := d.parseRegionPage(html, regionName)
		universities = append(universities, regionUnis...)
		courses = append(courses, regionCourses...)

		if progress != nil {
			progress(regionName, len(universities), len(courses))
		}
	}

	slog.Info("DGES scrape finished", "source", d.Name(), "universities", len(universities), "courses", len(courses))
	return universities, courses, nil
}

// fetchLatin1 fetches a page and decodes it from Windows-1252.
func (d *DGES) fetchLatin1(ctx context.Context, pageURL string) (string, error) {
	raw, err := d.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(raw)
	if err != nil {
		// Fall back to the raw bytes; accents may be mangled but the
		// structure still parses.
		return raw, nil
	}
	return decoded, nil
}

func (d *DGES) parseRegionPage(html, regionName string) ([]UniversityListing, []CourseListing) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}

	var universities []UniversityListing
	var courses []CourseListing

	currentType := "outro"
	var currentInst *UniversityListing

	doc.Find("h2, h3, tr").Each(func(_ int, el *goquery.Selection) {
		if el.Is("h2") || el.Is("h3") {
			heading := strings.ToLower(strings.TrimSpace(el.Text()))
			for key, value := range dgesInstitutionTypes {
				if strings.Contains(heading, key) {
					currentType = value
					break
				}
			}
			return
		}

		cells := el.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		firstCell := strings.TrimSpace(cells.First().Text())

		if dgesInstCode.MatchString(firstCell) {
			// Institution row: 4-digit code plus linked name.
			instLink := el.Find("a").First()
			if instLink.Length() == 0 {
				return
			}
			instName := strings.TrimSpace(instLink.Text())
			href, _ := instLink.Attr("href")

			uni := UniversityListing{
				ID:        GenerateID(d.Name(), firstCell[:4]+"-"+Slugify(instName)),
				Name:      instName,
				Slug:      Slugify(instName),
				Type:      currentType,
				Region:    regionName,
				City:      regionName,
				SourceURL: d.resolveURL(href),
			}
			universities = append(universities, uni)
			currentInst = &uni
			return
		}

		if currentInst == nil {
			return
		}

		// Course row: link to detcursopi with cod params in the query.
		courseLink := el.Find(`a[href*="detcursopi"]`).First()
		if courseLink.Length() == 0 {
			return
		}
		courseName := strings.TrimSpace(courseLink.Text())
		href, _ := courseLink.Attr("href")
		if courseName == "" || href == "" {
			return
		}

		courseCode := queryParam(href, "codc")
		rowText := el.Text()

		level := ""
		if m := dgesLevelTag.FindStringSubmatch(rowText); m != nil {
			level = parseDegreeLevel(m[1])
		}

		vacancies := 0
		if m := dgesTrailNum.FindStringSubmatch(strings.TrimSpace(rowText)); m != nil {
			vacancies, _ = strconv.Atoi(m[1])
		}

		courses = append(courses, CourseListing{
			ID:             GenerateID(d.Name(), courseCode+"-"+Slugify(courseName)),
			Name:           courseName,
			Slug:           Slugify(courseName),
			Code:           courseCode,
			Level:          level,
			City:           regionName,
			Vacancies:      vacancies,
			SourceURL:      d.resolveURL("/guias/" + href),
			UniversityName: currentInst.Name,
			UniversitySlug: currentInst.Slug,
		})
	})

	return universities, courses
}

func (d *DGES) resolveURL(href string) string {
	if href == "" {
		return d.baseURL + "/guias/indest.asp"
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return d.baseURL + href
}

// queryParam extracts a single query parameter from a (possibly relative) URL.
func queryParam(href, key string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

// parseDegreeLevel normalizes DGES degree notation ("Lic", "2º Cic", ...)
// into the level slugs the directory uses.
func parseDegreeLevel(text string) string {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "integrado"):
		return "mestrado-integrado"
	case strings.Contains(text, "lic") || strings.Contains(text, "1º cic"):
		return "licenciatura"
	case strings.Contains(text, "mest") || strings.Contains(text, "2º cic"):
		return "mestrado"
	case strings.Contains(text, "dout") || strings.Contains(text, "3º cic"):
		return "doutorado"
	case strings.Contains(text, "tesp") || strings.Contains(text, "ctesp"):
		return "curso-tecnico"
	case strings.Contains(text, "pós-grad") || strings.Contains(text, "pos-grad"):
		return "pos-graduacao"
	}
	return "outro"
}
