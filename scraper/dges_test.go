package scraper

import "testing"

const dgesRegionHTML = `
<html><body>
<h2>Ensino Superior Público Universitário</h2>
<table>
<tr><td>0501</td><td><a href="detinst.asp?cod=0501">Universidade de Aveiro</a></td></tr>
<tr><td></td><td><a href="detcursopi.asp?codc=9003&code=0501">Engenharia Informática</a> [Lic] 120</td></tr>
<tr><td></td><td><a href="detcursopi.asp?codc=9500&code=0501">Medicina</a> [Mestrado Integrado] 80</td></tr>
</table>
<h2>Ensino Superior Privado Politécnico</h2>
<table>
<tr><td>4256</td><td><a href="detinst.asp?cod=4256">Instituto Politécnico da Lusofonia</a></td></tr>
<tr><td></td><td><a href="detcursopi.asp?codc=8100&code=4256">Gestão</a></td></tr>
<tr><td>notacode</td><td>random row without institution code</td></tr>
</table>
</body></html>`

func TestDGESParseRegionPage(t *testing.T) {
	dges := NewDGES(NewFetcher(0, 0))

	universities, courses := dges.parseRegionPage(dgesRegionHTML, "Centro")

	if len(universities) != 2 {
		t.Fatalf("Expected 2 universities, got %d", len(universities))
	}
	if len(courses) != 3 {
		t.Fatalf("Expected 3 courses, got %d", len(courses))
	}

	aveiro := universities[0]
	if aveiro.Name != "Universidade de Aveiro" {
		t.Errorf("Unexpected name: %q", aveiro.Name)
	}
	if aveiro.Slug != "universidade-de-aveiro" {
		t.Errorf("Unexpected slug: %q", aveiro.Slug)
	}
	if aveiro.Type != "publica_universitario" {
		t.Errorf("Expected type from section heading, got %q", aveiro.Type)
	}
	if aveiro.Region != "Centro" {
		t.Errorf("Unexpected region: %q", aveiro.Region)
	}
	if aveiro.SourceURL != "https://www.dges.gov.pt/detinst.asp?cod=0501" {
		t.Errorf("Unexpected source URL: %q", aveiro.SourceURL)
	}

	if universities[1].Type != "privada_politecnico" {
		t.Errorf("Expected heading change to update type, got %q", universities[1].Type)
	}

	informatica := courses[0]
	if informatica.Name != "Engenharia Informática" {
		t.Errorf("Unexpected course name: %q", informatica.Name)
	}
	if informatica.Code != "9003" {
		t.Errorf("Expected course code from codc param, got %q", informatica.Code)
	}
	if informatica.Level != "licenciatura" {
		t.Errorf("Unexpected level: %q", informatica.Level)
	}
	if informatica.Vacancies != 120 {
		t.Errorf("Unexpected vacancies: %d", informatica.Vacancies)
	}
	if informatica.UniversitySlug != "universidade-de-aveiro" {
		t.Errorf("Course not attached to preceding institution: %q", informatica.UniversitySlug)
	}

	if courses[1].Level != "mestrado-integrado" {
		t.Errorf("Unexpected level for integrated masters: %q", courses[1].Level)
	}

	gestao := courses[2]
	if gestao.UniversitySlug != "instituto-politecnico-da-lusofonia" {
		t.Errorf("Course attached to wrong institution: %q", gestao.UniversitySlug)
	}
	if gestao.Level != "" || gestao.Vacancies != 0 {
		t.Errorf("Expected empty level and vacancies when absent, got %q/%d", gestao.Level, gestao.Vacancies)
	}
}

func TestParseDegreeLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Lic", "licenciatura"},
		{"1º Cic", "licenciatura"},
		{"Mest", "mestrado"},
		{"2º Cic", "mestrado"},
		{"Mestrado Integrado", "mestrado-integrado"},
		{"Dout", "doutorado"},
		{"3º Cic", "doutorado"},
		{"CTeSP", "curso-tecnico"},
		{"Pós-Graduação", "pos-graduacao"},
		{"whatever", "outro"},
	}

	for _, tt := range tests {
		if got := parseDegreeLevel(tt.input); got != tt.want {
			t.Errorf("parseDegreeLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestQueryParam(t *testing.T) {
	if got := queryParam("detcursopi.asp?codc=9003&code=0501", "codc"); got != "9003" {
		t.Errorf("Expected 9003, got %q", got)
	}
	if got := queryParam("detcursopi.asp?code=0501", "codc"); got != "" {
		t.Errorf("Expected empty for missing param, got %q", got)
	}
	if got := queryParam("://bad url", "codc"); got != "" {
		t.Errorf("Expected empty for unparsable URL, got %q", got)
	}
}
