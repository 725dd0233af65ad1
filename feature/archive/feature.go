package archive

import (
	"github.com/gofiber/fiber/v2"
)

// Feature wires the archive service into the feature loader.
type Feature struct {
	service *Service
}

// NewFeature creates the archive feature.
func NewFeature(service *Service) *Feature {
	return &Feature{service: service}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "archive"
}

// IsEnabled reports whether the feature can be loaded.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
