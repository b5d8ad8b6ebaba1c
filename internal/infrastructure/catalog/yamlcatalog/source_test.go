package yamlcatalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesServicesAndFAQ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
services:
  - name: haircut
    duration_minutes: 30
  - name: massage
faq:
  - keywords: ["hours", "open"]
    answer: "We are open 9-5."
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	services := src.Services()
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[1].DurationMinutes != 30 {
		t.Fatalf("expected duration default 30, got %d", services[1].DurationMinutes)
	}
	faq := src.FAQ()
	if len(faq) != 1 || faq[0].Answer != "We are open 9-5." {
		t.Fatalf("unexpected faq: %v", faq)
	}
}

func TestLoadRejectsEmptyServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("faq: []\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for catalog without services")
	}
}

func TestDefaultCatalogIsUsable(t *testing.T) {
	src := Default()
	if len(src.Services()) == 0 {
		t.Fatalf("default catalog must define services")
	}
	if len(src.FAQ()) == 0 {
		t.Fatalf("default catalog must define faq entries")
	}
}
