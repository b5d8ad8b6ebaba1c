package yamlcatalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/booking-assistant/internal/core/domain"
)

// Source serves the bookable services and the static FAQ table from a YAML
// file, loaded once at startup.
type Source struct {
	services []domain.ServiceOffering
	faq      []domain.FAQEntry
}

type catalogFile struct {
	Services []domain.ServiceOffering `yaml:"services"`
	FAQ      []domain.FAQEntry        `yaml:"faq"`
}

func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("catalog %s defines no services", path)
	}
	for i, svc := range file.Services {
		if svc.Name == "" {
			return nil, fmt.Errorf("catalog %s: service %d has no name", path, i)
		}
		if svc.DurationMinutes <= 0 {
			file.Services[i].DurationMinutes = 30
		}
	}

	return &Source{services: file.Services, faq: file.FAQ}, nil
}

// Default is the built-in catalog used when no file is configured.
func Default() *Source {
	return &Source{
		services: []domain.ServiceOffering{
			{Name: "haircut", DurationMinutes: 30},
			{Name: "beard trim", DurationMinutes: 15},
			{Name: "massage", DurationMinutes: 60},
			{Name: "consultation", DurationMinutes: 45},
		},
		faq: []domain.FAQEntry{
			{
				Keywords: []string{"hours", "open", "close"},
				Answer:   "We're open 9am to 5pm, Monday through Saturday.",
			},
			{
				Keywords: []string{"where", "location", "address", "parking"},
				Answer:   "We're at 12 Main Street; free parking is available behind the building.",
			},
			{
				Keywords: []string{"cancellation policy", "policy", "fee"},
				Answer:   "You can cancel or reschedule free of charge up to 24 hours before your appointment.",
			},
		},
	}
}

func (s *Source) Services() []domain.ServiceOffering {
	return s.services
}

func (s *Source) FAQ() []domain.FAQEntry {
	return s.faq
}
