package ingest

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
)

// Runner drives the engine over a batch of scraped races, strictly one
// record at a time: merge decisions read the latest committed state. A
// record-level failure (StopProcessing, validation) is logged, the record's
// source refs go on the skip list, and the batch continues. Anything else
// aborts the batch.
type Runner struct {
	engine   *Engine
	logger   ectologger.Logger
	notifier Notifier
	ignored  []string
}

// Notifier receives committed records. Implementations must not fail the
// ingest; emission problems are theirs to log.
type Notifier interface {
	RaceCommitted(ctx context.Context, race *models.Race, datasource string, created bool)
	ParticipantCommitted(ctx context.Context, participant *models.Participant, created bool)
}

// NewRunner wraps an engine for batch processing.
func NewRunner(engine *Engine, logger ectologger.Logger) *Runner {
	return &Runner{engine: engine, logger: logger}
}

// WithNotifier publishes lifecycle events for every committed record.
func (r *Runner) WithNotifier(notifier Notifier) *Runner {
	r.notifier = notifier
	return r
}

// Ignored returns the source refs of every skipped record, so reruns can
// exclude them.
func (r *Runner) Ignored() []string {
	return r.ignored
}

// ProcessAll ingests a batch in order.
func (r *Runner) ProcessAll(ctx context.Context, races []models.ScrapedRace) error {
	for _, race := range races {
		if err := r.Process(ctx, race); err != nil {
			return err
		}
	}
	return nil
}

// Process ingests a single scraped race with its participants.
func (r *Runner) Process(ctx context.Context, scraped models.ScrapedRace) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Runner.Process")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"name": scraped.PrimaryName(),
		"date": scraped.Date,
	})

	race, associated, status, err := r.engine.Resolve(ctx, scraped)
	if err != nil {
		return r.skip(scraped, log, err)
	}
	race, status, err = r.engine.Commit(ctx, race, status, associated)
	if err != nil {
		return r.skip(scraped, log, err)
	}
	if !status.Committed() {
		log.WithFields(map[string]any{"status": status}).Info("Race not committed, skipping participants")
		return nil
	}
	if r.notifier != nil {
		r.notifier.RaceCommitted(ctx, race, scraped.Datasource, status == StatusCreated)
	}

	for _, scrapedParticipant := range scraped.Participants {
		if err := r.processParticipant(ctx, race, status, scraped.Datasource, scrapedParticipant); err != nil {
			if recoverable(err) {
				log.WithError(err).Warn("Skipped participant")
				continue
			}
			return err
		}
	}

	log.WithFields(map[string]any{"status": status, "participants": len(scraped.Participants)}).Info("Processed race")
	return nil
}

func (r *Runner) processParticipant(ctx context.Context, race *models.Race, raceStatus Status, datasource string, scraped models.ScrapedParticipant) error {
	participant, status, err := r.engine.ResolveParticipant(ctx, race, datasource, scraped)
	if err != nil {
		return err
	}
	participant, status, err = r.engine.CommitParticipant(ctx, participant, raceStatus, status)
	if err != nil {
		return err
	}
	if !status.Committed() {
		return nil
	}
	if r.notifier != nil {
		r.notifier.ParticipantCommitted(ctx, participant, status == StatusCreated)
	}

	penalty := scraped.Penalty
	if penalty == nil && scraped.Disqualified {
		penalty = &models.ScrapedPenalty{Disqualification: true}
	}
	return r.engine.SavePenalty(ctx, participant, penalty)
}

// skip absorbs a record-level failure: recoverable errors land on the skip
// list, infrastructure errors propagate.
func (r *Runner) skip(scraped models.ScrapedRace, log ectologger.Logger, err error) error {
	if !recoverable(err) {
		return err
	}
	r.ignored = append(r.ignored, scraped.RaceIDs...)
	log.WithError(err).Warn("Skipped race")
	return nil
}

func recoverable(err error) bool {
	var validation *models.ValidationError
	return errors.Is(err, models.ErrStopProcessing) || errors.As(err, &validation)
}
