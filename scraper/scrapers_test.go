package scraper

import (
	"strings"
	"testing"
	"time"
)

const geekHunterHTML = `
<html><body>
<div data-testid="job-card">
  <a href="/vagas/desenvolvedor-go-1234">ver vaga</a>
  <h2>Desenvolvedor Go Pleno</h2>
  <span data-testid="company-name">Acme Tech</span>
  <span data-testid="location">Sao Paulo</span>
  <span data-testid="salary">R$ 10.000</span>
  <div class="tech-stack"><span>Go</span><span>Postgres</span></div>
</div>
<div data-testid="job-card">
  <a href="/vagas/desenvolvedor-go-1234">ver vaga</a>
  <h2>Desenvolvedor Go Pleno (duplicado)</h2>
</div>
<div data-testid="job-card">
  <a href="/vagas/backend-5678">ver vaga</a>
  <h2>Backend Senior</h2>
</div>
<div data-testid="job-card">
  <a href="/vagas/curto-9999">ver vaga</a>
  <h2>Dev</h2>
</div>
</body></html>`

func TestGeekHunterParse(t *testing.T) {
	g := NewGeekHunter(NewFetcher(time.Second, 0))

	jobs, err := g.parse(geekHunterHTML, 50)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs (dedupe + short title filtered), got %d", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Desenvolvedor Go Pleno" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.Company != "Acme Tech" {
		t.Errorf("Unexpected company: %q", first.Company)
	}
	if first.Location != "Sao Paulo" {
		t.Errorf("Unexpected location: %q", first.Location)
	}
	if first.Salary != "R$ 10.000" {
		t.Errorf("Unexpected salary: %q", first.Salary)
	}
	if first.URL != "https://www.geekhunter.com.br/vagas/desenvolvedor-go-1234" {
		t.Errorf("Unexpected URL: %q", first.URL)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "Go" {
		t.Errorf("Unexpected tags: %v", first.Tags)
	}
	if first.Source != "geekhunter" || first.Country != "br" {
		t.Errorf("Unexpected source/country: %s/%s", first.Source, first.Country)
	}

	// Defaults kick in when the card has no company or location.
	second := jobs[1]
	if second.Company != "Empresa nao identificada" {
		t.Errorf("Expected default company, got %q", second.Company)
	}
	if second.Location != "Brasil" {
		t.Errorf("Expected default location, got %q", second.Location)
	}
}

func TestGeekHunterParseLimit(t *testing.T) {
	g := NewGeekHunter(NewFetcher(time.Second, 0))

	jobs, err := g.parse(geekHunterHTML, 1)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("Expected limit of 1, got %d jobs", len(jobs))
	}
}

func TestGeekHunterParseAnchorFallback(t *testing.T) {
	// No job-card markup at all: the loosest selector picks bare anchors.
	html := `<html><body>
<a href="/vagas/analista-dados-111">Analista de Dados</a>
<a href="/sobre">Sobre</a>
</body></html>`

	g := NewGeekHunter(NewFetcher(time.Second, 0))
	jobs, err := g.parse(html, 10)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("Expected 1 job from anchor fallback, got %d", len(jobs))
	}
	if jobs[0].Title != "Analista de Dados" {
		t.Errorf("Unexpected title: %q", jobs[0].Title)
	}
}

const vagasHTML = `
<html><body>
<ul>
<li>
  <a class="link-detalhes-vaga" href="/vagas/v100/dev-go" title="Desenvolvedor Go">Desenvolvedor Go</a>
  <span class="emprVaga">Banco XYZ</span>
  <span class="vaga-local">Rio de Janeiro</span>
  <span class="nivelVaga">Pleno</span>
</li>
<li>
  <a class="link-detalhes-vaga" href="/vagas/v200/qa">Analista QA</a>
</li>
</ul>
</body></html>`

func TestVagasComBrParse(t *testing.T) {
	v := NewVagasComBr(NewFetcher(time.Second, 0))

	jobs, err := v.parse(vagasHTML, 50)
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Desenvolvedor Go" {
		t.Errorf("Unexpected title: %q", first.Title)
	}
	if first.Company != "Banco XYZ" {
		t.Errorf("Unexpected company: %q", first.Company)
	}
	if first.Location != "Rio de Janeiro" {
		t.Errorf("Unexpected location: %q", first.Location)
	}
	if first.Description != "Nivel: Pleno" {
		t.Errorf("Unexpected description: %q", first.Description)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "Pleno" {
		t.Errorf("Unexpected tags: %v", first.Tags)
	}
	if !strings.HasPrefix(first.URL, "https://www.vagas.com.br/") {
		t.Errorf("URL not resolved against base: %q", first.URL)
	}

	second := jobs[1]
	if second.Company != "Empresa confidencial" {
		t.Errorf("Expected default company, got %q", second.Company)
	}
	if second.Location != "Brasil" {
		t.Errorf("Expected default location, got %q", second.Location)
	}
	if second.Description != "" {
		t.Errorf("Expected no description without level, got %q", second.Description)
	}
}

func TestGenerateID(t *testing.T) {
	id1 := GenerateID("geekhunter", "https://example.com/vaga/1")
	id2 := GenerateID("geekhunter", "https://example.com/vaga/1")
	id3 := GenerateID("geekhunter", "https://example.com/vaga/2")

	if id1 != id2 {
		t.Error("GenerateID is not deterministic")
	}
	if id1 == id3 {
		t.Error("Different inputs produced the same id")
	}
	if !strings.HasPrefix(id1, "geekhunter-") {
		t.Errorf("ID missing source prefix: %q", id1)
	}
	if len(id1) != len("geekhunter-")+12 {
		t.Errorf("Unexpected id length: %q", id1)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Universidade de Lisboa", "universidade-de-lisboa"},
		{"Évora & Côa", "evora-coa"},
		{"  spaced   out  ", "spaced-out"},
		{"Ciência da Computação", "ciencia-da-computacao"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestRegistry(t *testing.T) {
	fetcher := NewFetcher(time.Second, 0)
	gh := NewGeekHunter(fetcher)
	vg := NewVagasComBr(fetcher)

	registry := NewRegistry(gh, vg)

	if registry.Get("geekhunter") != gh {
		t.Error("Get did not return the registered scraper")
	}
	if registry.Get("missing") != nil {
		t.Error("Get should return nil for unknown sources")
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "geekhunter" || names[1] != "vagascombr" {
		t.Errorf("Names() should preserve registration order, got %v", names)
	}
	if len(registry.All()) != 2 {
		t.Errorf("All() should return both scrapers")
	}
}
