package scraper

import (
	"iter"

	"github.com/jimezsa/admitscrape/internal/models"
)

// Source knows how to address the listing pages of one survey site and how
// to turn a fetched page into raw records.
type Source interface {
	Name() string
	PageURL(page int) string
	Extract(body []byte) (iter.Seq[models.RawRecord], error)
}
