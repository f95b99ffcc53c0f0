package scraper

import "testing"

const eduUniversitiesHTML = `
<html><body>
<article class="type-instituicao">
  <img class="logo" src="/wp-content/uploads/ucp-logo.png">
  <h2 class="entry-title"><a href="https://eduportugal.eu/instituicoes-de-ensino/universidade-catolica-portuguesa/">Universidade Católica Portuguesa</a></h2>
  <div class="location">Campus de Lisboa</div>
  <div class="excerpt">Universidade privada fundada em 1967.</div>
</article>
<article class="type-instituicao">
  <h3><a href="/instituicoes-de-ensino/ipca/">IPCA</a></h3>
</article>
<article class="type-instituicao">
  <h2>Sem link nenhum</h2>
</article>
<nav class="pagination">
  <a class="page-numbers" href="/instituicoes-de-ensino/page/2/">2</a>
  <a class="page-numbers" href="/instituicoes-de-ensino/page/7/">7</a>
</nav>
</body></html>`

func TestEduPortugalParseUniversitiesPage(t *testing.T) {
	edu := NewEduPortugal(NewFetcher(0, 0))

	universities := edu.parseUniversitiesPage(eduUniversitiesHTML)
	if len(universities) != 2 {
		t.Fatalf("Expected 2 universities, got %d", len(universities))
	}

	catolica := universities[0]
	if catolica.Name != "Universidade Católica Portuguesa" {
		t.Errorf("Unexpected name: %q", catolica.Name)
	}
	if catolica.Slug != "universidade-catolica-portuguesa" {
		t.Errorf("Expected slug from URL path, got %q", catolica.Slug)
	}
	if catolica.City != "Lisboa" {
		t.Errorf("Expected city extracted from location text, got %q", catolica.City)
	}
	if catolica.LogoURL != "https://eduportugal.eu/wp-content/uploads/ucp-logo.png" {
		t.Errorf("Expected logo URL resolved against base, got %q", catolica.LogoURL)
	}
	if catolica.Description != "Universidade privada fundada em 1967." {
		t.Errorf("Unexpected description: %q", catolica.Description)
	}

	ipca := universities[1]
	if ipca.SourceURL != "https://eduportugal.eu/instituicoes-de-ensino/ipca/" {
		t.Errorf("Expected relative href resolved against base, got %q", ipca.SourceURL)
	}
	if ipca.Slug != "ipca" {
		t.Errorf("Unexpected slug: %q", ipca.Slug)
	}
}

const eduCoursesHTML = `
<html><body>
<article class="type-curso">
  <h2 class="entry-title"><a href="https://eduportugal.eu/cursos/engenharia-informatica-uminho/">Engenharia Informática</a></h2>
  <div class="instituicao">Universidade do Minho</div>
  <div class="location">Braga, Portugal</div>
  <div class="duracao">3 anos</div>
</article>
<article class="type-curso">
  <h2 class="entry-title"><a href="https://eduportugal.eu/cursos/engenharia-informatica-uminho/">Engenharia Informática (duplicado)</a></h2>
</article>
</body></html>`

func TestEduPortugalParseCoursesPage(t *testing.T) {
	edu := NewEduPortugal(NewFetcher(0, 0))

	courses := edu.parseCoursesPage(eduCoursesHTML, "licenciatura")
	if len(courses) != 1 {
		t.Fatalf("Expected duplicate URLs deduplicated, got %d courses", len(courses))
	}

	course := courses[0]
	if course.Name != "Engenharia Informática" {
		t.Errorf("Unexpected name: %q", course.Name)
	}
	if course.Level != "licenciatura" {
		t.Errorf("Expected level from listing, got %q", course.Level)
	}
	if course.UniversityName != "Universidade do Minho" {
		t.Errorf("Unexpected university: %q", course.UniversityName)
	}
	if course.UniversitySlug != "universidade-do-minho" {
		t.Errorf("Unexpected university slug: %q", course.UniversitySlug)
	}
	if course.City != "Braga" {
		t.Errorf("Unexpected city: %q", course.City)
	}
	if course.Duration != "3 anos" {
		t.Errorf("Unexpected duration: %q", course.Duration)
	}
	if course.Slug != "engenharia-informatica-uminho" {
		t.Errorf("Unexpected slug: %q", course.Slug)
	}
}

func TestEduPortugalTotalPages(t *testing.T) {
	edu := NewEduPortugal(NewFetcher(0, 0))

	if got := edu.totalPages(eduUniversitiesHTML); got != 7 {
		t.Errorf("Expected 7 pages from pagination links, got %d", got)
	}
	if got := edu.totalPages("<html><body>no pagination</body></html>"); got != 1 {
		t.Errorf("Expected 1 page without pagination, got %d", got)
	}
}

func TestLastPathSegment(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"https://eduportugal.eu/instituicoes-de-ensino/ipca/", "ipca"},
		{"/cursos/medicina", "medicina"},
		{"medicina", "medicina"},
	}
	for _, tt := range tests {
		if got := lastPathSegment(tt.href); got != tt.want {
			t.Errorf("lastPathSegment(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestExtractCity(t *testing.T) {
	if got := extractCity("Campus de Lisboa e Porto"); got != "Lisboa" {
		t.Errorf("Expected first known city match, got %q", got)
	}
	if got := extractCity("  Odivelas  "); got != "Odivelas" {
		t.Errorf("Expected trimmed fallback, got %q", got)
	}
}
