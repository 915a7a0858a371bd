package amazonsync

import (
	"regexp"
	"strings"

	"github.com/greenloop/catalog_backend/config"
	"github.com/greenloop/catalog_backend/models"
	"github.com/sirupsen/logrus"
)

// Amazon lookup keys (ASINs) are exactly 10 alphanumeric characters.
var asinPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

func IsValidASIN(tag string) bool {
	return asinPattern.MatchString(strings.TrimSpace(tag))
}

// FilterTrackableSources returns the subset of sources whose lookup key is
// present and well-formed. Rejected sources are logged with their id and the
// specific reason but never mutated or deleted.
func FilterTrackableSources(logger *logrus.Logger, sources []models.Source) ([]models.Source, int) {
	valid := make([]models.Source, 0, len(sources))
	excluded := 0
	for _, source := range sources {
		tag := strings.TrimSpace(source.AffiliateTag)
		if tag == "" {
			excluded++
			config.LogWarn(logger, "amazonsync", "FilterTrackableSources", "source excluded from batch", source.ID, "missing lookup key")
			continue
		}
		if !asinPattern.MatchString(tag) {
			excluded++
			config.LogWarn(logger, "amazonsync", "FilterTrackableSources", "source excluded from batch", source.ID, "malformed lookup key: "+tag)
			continue
		}
		valid = append(valid, source)
	}
	return valid, excluded
}
