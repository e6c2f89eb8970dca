// Package pipeline drives one scrape run: check robots.txt, then fetch,
// extract, validate and persist listing pages one at a time until a
// termination rule fires.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/admitscrape/internal/normalize"
	"github.com/jimezsa/admitscrape/internal/scraper"
	"github.com/jimezsa/admitscrape/internal/store"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxConsecutiveFailures = 3
	// HardPageCap bounds runs that never see an empty page.
	HardPageCap = 1000
)

// Stop reasons reported in Summary.StopReason.
const (
	StopEmptyPage   = "empty_page"
	StopMaxPages    = "max_pages"
	StopMaxRecords  = "max_records"
	StopFailures    = "consecutive_failures"
	StopPageCap     = "page_cap"
	StopDisallowed  = "disallowed"
	StopInterrupted = "interrupted"
)

type Robots interface {
	Load(ctx context.Context) error
	Require(path string) error
	CrawlDelay() time.Duration
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// delayRaiser is implemented by fetchers that can honor a Crawl-delay.
type delayRaiser interface {
	RaiseDelay(d time.Duration)
}

type Config struct {
	RunID string
	// MaxPages stops after this many listing pages; zero means until an empty page.
	MaxPages int
	// MaxRecords stops once this many records were accepted; zero means no limit.
	MaxRecords             int
	MaxConsecutiveFailures int
	Now                    func() time.Time
}

type Runner struct {
	source  scraper.Source
	robots  Robots
	fetcher Fetcher
	sink    store.Store
	cfg     Config
	logger  zerolog.Logger

	// OnState observes every state transition. page is zero outside a page.
	OnState func(state State, page int)
}

func NewRunner(source scraper.Source, robots Robots, fetcher Fetcher, sink store.Store, cfg Config, logger zerolog.Logger) *Runner {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		source:  source,
		robots:  robots,
		fetcher: fetcher,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With().Str("component", "pipeline").Str("run_id", cfg.RunID).Logger(),
	}
}

// Run executes the pipeline. The returned error is non-nil only for
// conditions that stop the run as a whole: robots.txt unavailable or
// disallowing the listing, a sink write failure, or cancellation. The
// summary is valid in every case.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	summary = newSummary(r.cfg.RunID, r.cfg.Now())
	defer func() { summary.End = r.cfg.Now() }()
	r.transition(StateIdle, 0)

	if err = r.robots.Load(ctx); err != nil {
		return summary, fmt.Errorf("refusing to crawl: %w", err)
	}
	if err = r.robots.Require(r.source.PageURL(1)); err != nil {
		return summary, fmt.Errorf("refusing to crawl: %w", err)
	}
	if delay := r.robots.CrawlDelay(); delay > 0 {
		if raiser, ok := r.fetcher.(delayRaiser); ok {
			raiser.RaiseDelay(delay)
		}
		r.logger.Info().Dur("crawl_delay", delay).Msg("robots.txt crawl delay applied")
	}

	failures := 0
	for page := 1; ; page++ {
		if r.cfg.MaxPages > 0 && page > r.cfg.MaxPages {
			summary.StopReason = StopMaxPages
			break
		}
		if page > HardPageCap {
			summary.StopReason = StopPageCap
			r.logger.Warn().Int("cap", HardPageCap).Msg("page cap reached")
			break
		}
		if err := ctx.Err(); err != nil {
			summary.StopReason = StopInterrupted
			return summary, err
		}

		target := r.source.PageURL(page)
		if err := r.robots.Require(target); err != nil {
			summary.StopReason = StopDisallowed
			r.logger.Warn().Err(err).Int("page", page).Msg("page disallowed, stopping")
			break
		}

		rows, stop, err := r.runPage(ctx, page, target, &summary)
		if err != nil {
			return summary, err
		}
		if stop != "" {
			summary.StopReason = stop
			break
		}
		if rows < 0 {
			failures++
			if failures >= r.cfg.MaxConsecutiveFailures {
				summary.StopReason = StopFailures
				r.logger.Error().Int("failures", failures).Msg("too many consecutive page failures, stopping")
				break
			}
			continue
		}
		failures = 0
		if rows == 0 {
			summary.PagesEmpty++
			summary.StopReason = StopEmptyPage
			r.logger.Info().Int("page", page).Msg("empty page, stopping")
			break
		}
	}

	r.transition(StateDone, 0)
	r.logger.Info().
		Int("pages", summary.PagesFetched).
		Int("failed_pages", summary.PagesFailed).
		Int("accepted", summary.Accepted).
		Int("persisted", summary.Persisted).
		Int("duplicates", summary.Duplicates).
		Int("rejected", summary.RejectedTotal()).
		Str("stop", summary.StopReason).
		Msg("run finished")
	return summary, nil
}

// runPage processes one listing page and returns the number of rows seen,
// or -1 when the page failed. A non-empty stop ends the run normally.
func (r *Runner) runPage(ctx context.Context, page int, target string, summary *Summary) (int, string, error) {
	log := r.logger.With().Int("page", page).Logger()

	r.transition(StateFetching, page)
	body, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			summary.StopReason = StopInterrupted
			return 0, "", ctxErr
		}
		r.failPage(page, summary)
		log.Error().Err(err).Str("url", target).Msg("page skipped")
		return -1, "", nil
	}
	summary.PagesFetched++

	r.transition(StateExtracting, page)
	seq, err := r.source.Extract(body)
	if err != nil {
		r.failPage(page, summary)
		log.Error().Err(err).Msg("page could not be parsed")
		return -1, "", nil
	}

	opts := normalize.Options{Now: r.cfg.Now}
	rows, accepted, stop := 0, 0, ""
	for raw := range seq {
		rows++
		summary.RowsSeen++
		if raw.Empty() {
			summary.ParseFailures++
			log.Debug().Int("row", rows).Msg("row without fields skipped")
			continue
		}

		r.transition(StateValidating, page)
		result := normalize.Record(raw, opts)
		for _, field := range result.Dropped {
			summary.Dropped[field]++
		}
		if !result.Accepted() {
			summary.Rejected[string(result.Rejection.Reason)]++
			log.Debug().Str("rejection", result.Rejection.String()).Int("row", rows).Msg("record rejected")
			continue
		}
		summary.Accepted++
		accepted++
		if result.Degraded() {
			summary.Degraded++
			log.Debug().Strs("dropped", result.Dropped).Str("url", result.Record.SourceURL).Msg("optional fields dropped")
		} else {
			summary.Clean++
		}

		r.transition(StatePersisting, page)
		added, err := r.sink.Append(ctx, *result.Record)
		if err != nil {
			return rows, "", fmt.Errorf("persist page %d: %w", page, err)
		}
		if added {
			summary.Persisted++
		} else {
			summary.Duplicates++
			log.Debug().Str("url", result.Record.SourceURL).Msg("duplicate skipped")
		}

		if r.cfg.MaxRecords > 0 && summary.Accepted >= r.cfg.MaxRecords {
			stop = StopMaxRecords
			break
		}
	}

	log.Info().Int("rows", rows).Int("accepted", accepted).Msg("page done")
	return rows, stop, nil
}

func (r *Runner) failPage(page int, summary *Summary) {
	summary.PagesFailed++
	summary.FailedPages = append(summary.FailedPages, page)
	r.transition(StateFailed, page)
}

func (r *Runner) transition(state State, page int) {
	if r.OnState != nil {
		r.OnState(state, page)
	}
}
