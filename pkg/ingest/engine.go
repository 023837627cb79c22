// Package ingest turns scraped races into canonical records: it resolves
// every reference (league, competitions, clubs), detects duplicates and
// merges them under decision-channel control, then commits.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/decision"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

var validate = validator.New()

// ClubResolver resolves club and organizer labels to entities.
type ClubResolver interface {
	ResolveClub(ctx context.Context, name string) (*models.Entity, error)
	ResolveOrganizer(ctx context.Context, name string) (*models.Entity, error)
}

// CompetitionResolver resolves competition names and infers editions.
type CompetitionResolver interface {
	Resolve(ctx context.Context, kind models.CompetitionKind, name string) (*models.Competition, error)
	InferEdition(ctx context.Context, competition *models.Competition, gender, category string, year int) (int, error)
}

// Engine runs the resolve/merge/commit pipeline. It is synchronous per
// record: merge decisions depend on reading the latest committed state.
type Engine struct {
	races        RaceStore
	leagues      LeagueStore
	participants ParticipantStore
	penalties    PenaltyStore

	entities     ClubResolver
	competitions CompetitionResolver

	channel decision.Channel
	logger  ectologger.Logger
}

// NewEngine assembles the pipeline.
func NewEngine(
	races RaceStore,
	leagues LeagueStore,
	participants ParticipantStore,
	penalties PenaltyStore,
	entities ClubResolver,
	competitions CompetitionResolver,
	channel decision.Channel,
	logger ectologger.Logger,
) *Engine {
	return &Engine{
		races:        races,
		leagues:      leagues,
		participants: participants,
		penalties:    penalties,
		entities:     entities,
		competitions: competitions,
		channel:      channel,
		logger:       logger,
	}
}

// Resolve maps a scraped race onto the canonical store: it returns the race
// to commit, its day-pairing counterpart when one exists, and the status.
// EXISTING means this source already contributed the race and nothing needs
// to be written.
func (e *Engine) Resolve(ctx context.Context, scraped models.ScrapedRace) (*models.Race, *models.Race, Status, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Engine.Resolve")
	defer span.End()

	if err := validate.Struct(scraped); err != nil {
		return nil, nil, StatusIgnore, models.StopProcessing("invalid scraped race %q: %v", scraped.PrimaryName(), err)
	}

	date, err := scraped.ParsedDate()
	if err != nil {
		return nil, nil, StatusIgnore, err
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"name":       scraped.PrimaryName(),
		"date":       scraped.Date,
		"datasource": scraped.Datasource,
	})

	// A source contributes each race once; re-ingesting the same ref is a
	// no-op.
	for _, ref := range scraped.RaceIDs {
		existing, err := e.races.GetByRef(ctx, scraped.Datasource, ref)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, nil, StatusIgnore, err
		}
		log.WithFields(map[string]any{"race_id": existing.ID}).Info("Race already ingested from this source")
		return existing, nil, StatusExisting, nil
	}

	leagueID, err := e.resolveLeague(ctx, scraped)
	if err != nil {
		return nil, nil, StatusIgnore, err
	}

	names := scrapedNames(scraped)
	dbRace, err := e.guessByNames(ctx, scraped, names, leagueID, date)
	if err != nil {
		return nil, nil, StatusIgnore, err
	}

	trophy, trophyEdition, err := e.resolveCompetition(ctx, models.KindTrophy, scraped, dbRace, date)
	if err != nil {
		return nil, nil, StatusIgnore, err
	}
	flag, flagEdition, err := e.resolveCompetition(ctx, models.KindFlag, scraped, dbRace, date)
	if err != nil {
		return nil, nil, StatusIgnore, err
	}
	if trophy == nil && flag == nil {
		return nil, nil, StatusIgnore, models.StopProcessing("no trophy or flag resolved for %q", scraped.PrimaryName())
	}

	candidate, err := e.buildRace(ctx, scraped, date, leagueID, trophy, trophyEdition, flag, flagEdition)
	if err != nil {
		return nil, nil, StatusIgnore, err
	}
	e.fillFromSiblings(ctx, candidate, trophy, flag)

	associated, err := e.races.GetAssociated(ctx, candidate)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, nil, StatusIgnore, err
	}

	existing, err := e.races.GetByCompetitions(ctx, candidate.TrophyID, candidate.FlagID, candidate.LeagueID, date)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, nil, StatusIgnore, err
		}
		return candidate, associated, StatusNew, nil
	}

	merged := e.merge(ctx, existing, candidate)
	if merged == nil {
		// Duplicate rejected: the incoming race stands alone. When the
		// collision came from a shared competition name it is usually a
		// play-off bracket, so offer to drop the league.
		if candidate.LeagueID != nil && e.channel.Confirm(fmt.Sprintf("keep %q leagueless (play-off)?", scraped.PrimaryName())) {
			candidate.LeagueID = nil
		}
		return candidate, associated, StatusNew, nil
	}
	log.WithFields(map[string]any{"race_id": merged.ID}).Info("Merged scraped race into existing record")
	return merged, associated, StatusMerged, nil
}

// Commit writes a resolved race. Approval comes from the decision channel;
// a rejected save aborts the record. A unique-constraint failure on a day-1
// write gets one retry as day-2 before giving up.
func (e *Engine) Commit(ctx context.Context, race *models.Race, status Status, associated *models.Race) (*models.Race, Status, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Engine.Commit")
	defer span.End()

	if !status.NeedsCommit() {
		return race, status, nil
	}
	if err := race.Validate(); err != nil {
		return race, status, err
	}

	verb := "create"
	if status == StatusMerged {
		verb = "update"
	}
	if !e.channel.Confirm(fmt.Sprintf("%s race %v (%s)?", verb, race.RaceNames, race.Date.Format("2006-01-02"))) {
		return race, status, models.StopProcessing("save rejected for race %v", race.RaceNames)
	}

	var err error
	if status == StatusNew {
		err = e.races.Create(ctx, race)
		if isUniqueViolation(err) && race.Day == 1 {
			race.Day = 2
			e.logger.WithContext(ctx).WithFields(map[string]any{"names": race.RaceNames}).
				Warn("Day 1 collided on the uniqueness constraint, retrying as day 2")
			err = e.races.Create(ctx, race)
			// The collision already confirmed the pair, so link both rows
			// without another prompt. Associate keeps the link symmetric.
			if err == nil && associated != nil {
				if linkErr := e.races.Associate(ctx, race, associated); linkErr != nil {
					return race, status, linkErr
				}
			}
		}
	} else {
		err = e.races.Update(ctx, race)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return race, status, models.StopProcessing("race %v collides with an existing record: %v", race.RaceNames, err)
		}
		return race, status, err
	}

	if associated != nil && race.AssociatedID == nil && associated.AssociatedID == nil {
		if e.channel.Confirm(fmt.Sprintf("link race %v with its day %d counterpart?", race.RaceNames, associated.Day)) {
			if err := e.races.Associate(ctx, race, associated); err != nil {
				return race, status, err
			}
		}
	}

	return race, status.Next(), nil
}

// resolveLeague maps the scraped league label to a League id. Play-off
// brackets race leagueless by convention, whatever the source says.
func (e *Engine) resolveLeague(ctx context.Context, scraped models.ScrapedRace) (*string, error) {
	if scraped.League == "" {
		return nil, nil
	}
	for _, name := range scraped.Names {
		if normalizers.IsPlayOff(name.Name) {
			return nil, nil
		}
	}

	league, err := e.leagues.GetByName(ctx, scraped.League)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.StopProcessing("unknown league %q", scraped.League)
		}
		return nil, err
	}
	return &league.ID, nil
}

// guessByNames finds an existing race by name variants on the same date.
// Not authoritative (that is GetByCompetitions), but it recovers editions
// and competitions the source omitted. A gender mismatch is retried against
// ALL because merged mixed events carry the sentinel.
func (e *Engine) guessByNames(ctx context.Context, scraped models.ScrapedRace, names []string, leagueID *string, date time.Time) (*models.Race, error) {
	candidates, err := e.races.SearchByNames(ctx, names, leagueID, scraped.Gender, date, scraped.Day)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && scraped.Gender != models.GenderAll {
		candidates, err = e.races.SearchByNames(ctx, names, leagueID, models.GenderAll, date, scraped.Day)
		if err != nil {
			return nil, err
		}
	}

	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	}

	// Several name matches: disambiguate by the competition the names
	// resolve to, then escalate.
	for _, kind := range []models.CompetitionKind{models.KindTrophy, models.KindFlag} {
		competition, _, err := e.matchCompetitionName(ctx, kind, scraped.Names)
		if err != nil {
			return nil, err
		}
		if competition == nil {
			continue
		}
		narrowed := filterRacesByCompetition(candidates, kind, competition.ID)
		if len(narrowed) == 1 {
			return &narrowed[0], nil
		}
	}

	options := make([]string, len(candidates))
	for i, candidate := range candidates {
		options[i] = fmt.Sprintf("%s %v", candidate.ID, candidate.RaceNames)
	}
	if choice, ok := e.channel.Choose(fmt.Sprintf("several races match %q, pick one", scraped.PrimaryName()), options); ok {
		for i, option := range options {
			if option == choice {
				return &candidates[i], nil
			}
		}
	}
	return nil, nil
}

// resolveCompetition resolves the competition of one kind plus its edition.
// Edition precedence: the value the source printed, then the name-matched
// db race, then inference from adjacent years, then the decision channel. A
// competition without an edition is fatal: it does not identify an instance.
func (e *Engine) resolveCompetition(ctx context.Context, kind models.CompetitionKind, scraped models.ScrapedRace, dbRace *models.Race, date time.Time) (*models.Competition, *int, error) {
	competition, edition, err := e.matchCompetitionName(ctx, kind, scraped.Names)
	if err != nil || competition == nil {
		return nil, nil, err
	}

	if edition == nil && dbRace != nil {
		if id := dbRace.CompetitionID(kind); id != nil && *id == competition.ID {
			edition = dbRace.Edition(kind)
		}
	}
	if edition == nil {
		inferred, err := e.competitions.InferEdition(ctx, competition, scraped.Gender, scraped.Category, date.Year())
		if err == nil {
			edition = &inferred
		} else if !errors.Is(err, models.ErrNotFound) {
			return nil, nil, err
		}
	}
	if edition == nil {
		question := fmt.Sprintf("edition of %s %q in %d?", kind, competition.Name, date.Year())
		if answer, ok := e.channel.Text(question); ok {
			if value, err := strconv.Atoi(answer); err == nil && value > 0 {
				edition = &value
			}
		}
	}
	if edition == nil {
		return nil, nil, models.StopProcessing("%s %q resolved without an edition", kind, competition.Name)
	}
	return competition, edition, nil
}

// matchCompetitionName resolves the first scraped name matching a
// competition of the kind, returning the edition that name carried.
// Memorial variants are skipped unless they are the only name.
func (e *Engine) matchCompetitionName(ctx context.Context, kind models.CompetitionKind, names []models.ScrapedName) (*models.Competition, *int, error) {
	for _, name := range names {
		if normalizers.IsMemorial(name.Name) && len(names) > 1 {
			continue
		}
		competition, err := e.competitions.Resolve(ctx, kind, name.Name)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		return competition, name.Edition, nil
	}
	return nil, nil, nil
}

// buildRace assembles the candidate canonical race with its provenance.
func (e *Engine) buildRace(
	ctx context.Context,
	scraped models.ScrapedRace,
	date time.Time,
	leagueID *string,
	trophy *models.Competition,
	trophyEdition *int,
	flag *models.Competition,
	flagEdition *int,
) (*models.Race, error) {
	race := &models.Race{
		Type:      scraped.Type,
		Date:      date,
		Day:       scraped.Day,
		Modality:  scraped.Modality,
		Gender:    scraped.Gender,
		Category:  scraped.Category,
		Laps:      scraped.RaceLaps,
		Lanes:     scraped.RaceLanes,
		Cancelled: scraped.Cancelled,
		RaceNames: pq.StringArray(scrapedNames(scraped)),
		LeagueID:  leagueID,
	}
	if scraped.Town != "" {
		town := scraped.Town
		race.Town = &town
	}
	if scraped.Sponsor != "" {
		sponsor := scraped.Sponsor
		race.Sponsor = &sponsor
	}
	if trophy != nil {
		race.SetCompetition(models.KindTrophy, &trophy.ID, trophyEdition)
	}
	if flag != nil {
		race.SetCompetition(models.KindFlag, &flag.ID, flagEdition)
	}

	if scraped.Organizer != "" {
		organizer, err := e.entities.ResolveOrganizer(ctx, scraped.Organizer)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if organizer != nil {
			race.OrganizerID = &organizer.ID
		}
	}

	for _, ref := range scraped.RaceIDs {
		record, err := models.NewProvenance(scraped.Datasource).
			RefID(ref).
			Value("url", scraped.URL).
			Build()
		if err != nil {
			return nil, err
		}
		race.Metadata.AddDatasource(record)
	}
	return race, nil
}

// fillFromSiblings copies town and organizer from races of the same
// competition, but only when every sibling agrees on a single value.
func (e *Engine) fillFromSiblings(ctx context.Context, race *models.Race, trophy, flag *models.Competition) {
	if race.Town != nil && race.OrganizerID != nil {
		return
	}

	var siblings []models.Race
	for _, competition := range []*models.Competition{trophy, flag} {
		if competition == nil {
			continue
		}
		found, err := e.races.FindSiblings(ctx, competition.Kind, competition.ID)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Sibling lookup failed")
			continue
		}
		siblings = append(siblings, found...)
	}
	if len(siblings) == 0 {
		return
	}

	if race.Town == nil {
		race.Town = uniqueValue(siblings, func(r models.Race) *string { return r.Town })
	}
	if race.OrganizerID == nil {
		race.OrganizerID = uniqueValue(siblings, func(r models.Race) *string { return r.OrganizerID })
	}
}

// merge reconciles an incoming race into the existing duplicate. Returns
// nil when the decision channel rejects the merge. Provenance is appended
// if absent; gender and category promote to ALL on disagreement; every
// other differing field needs its own approval.
func (e *Engine) merge(ctx context.Context, existing, incoming *models.Race) *models.Race {
	question := fmt.Sprintf("merge scraped race %v into existing %v (%s)?",
		incoming.RaceNames, existing.RaceNames, existing.Date.Format("2006-01-02"))
	if !e.channel.Confirm(question) {
		return nil
	}

	for _, record := range incoming.Metadata.Datasource {
		existing.Metadata.AddDatasource(record)
	}
	if existing.Gender != incoming.Gender {
		existing.Gender = models.GenderAll
	}
	if existing.Category != incoming.Category {
		existing.Category = models.CategoryAll
	}
	existing.RaceNames = mergeNameSets(existing.RaceNames, incoming.RaceNames)
	if incoming.Cancelled {
		existing.Cancelled = true
	}

	// A day split reports fewer laps than the full event; never offer a
	// downgrade.
	if incoming.Laps != nil && (existing.Laps == nil || *incoming.Laps > *existing.Laps) {
		e.offerInt(&existing.Laps, incoming.Laps, "laps")
	}
	e.offerInt(&existing.Lanes, incoming.Lanes, "lanes")
	e.offerString(&existing.Town, incoming.Town, "town")
	e.offerString(&existing.Sponsor, incoming.Sponsor, "sponsor")
	e.offerString(&existing.OrganizerID, incoming.OrganizerID, "organizer")
	for _, kind := range []models.CompetitionKind{models.KindTrophy, models.KindFlag} {
		existingID, incomingID := existing.CompetitionID(kind), incoming.CompetitionID(kind)
		switch {
		case existingID == nil && incomingID != nil:
			// The incoming source knows a competition this record lacks.
			if e.channel.Confirm(fmt.Sprintf("attach %s (edition %s)?", kind, formatInt(incoming.Edition(kind)))) {
				existing.SetCompetition(kind, incomingID, incoming.Edition(kind))
			}
		case equalPtr(existingID, incomingID):
			e.offerInt(editionField(existing, kind), incoming.Edition(kind), fmt.Sprintf("%s edition", kind))
		}
	}

	return existing
}

func (e *Engine) offerInt(target **int, incoming *int, field string) {
	if incoming == nil || (*target != nil && **target == *incoming) {
		return
	}
	if e.channel.Confirm(fmt.Sprintf("set %s to %d (was %s)?", field, *incoming, formatInt(*target))) {
		*target = incoming
	}
}

func (e *Engine) offerString(target **string, incoming *string, field string) {
	if incoming == nil || (*target != nil && **target == *incoming) {
		return
	}
	if e.channel.Confirm(fmt.Sprintf("set %s to %q (was %s)?", field, *incoming, formatString(*target))) {
		*target = incoming
	}
}

func scrapedNames(scraped models.ScrapedRace) []string {
	seen := make(map[string]struct{}, len(scraped.Names))
	names := make([]string, 0, len(scraped.Names))
	for _, name := range scraped.Names {
		clean := normalizers.WhitespacesClean(normalizers.Uppercase(name.Name))
		if _, ok := seen[clean]; ok || clean == "" {
			continue
		}
		seen[clean] = struct{}{}
		names = append(names, clean)
	}
	return names
}

func mergeNameSets(existing, incoming pq.StringArray) pq.StringArray {
	seen := make(map[string]struct{}, len(existing))
	out := append(pq.StringArray(nil), existing...)
	for _, name := range existing {
		seen[name] = struct{}{}
	}
	for _, name := range incoming {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func filterRacesByCompetition(races []models.Race, kind models.CompetitionKind, competitionID string) []models.Race {
	var out []models.Race
	for _, race := range races {
		if id := race.CompetitionID(kind); id != nil && *id == competitionID {
			out = append(out, race)
		}
	}
	return out
}

// uniqueValue returns the single distinct non-nil value across races, or
// nil when there is none or more than one.
func uniqueValue(races []models.Race, get func(models.Race) *string) *string {
	var found *string
	for _, race := range races {
		value := get(race)
		if value == nil {
			continue
		}
		if found != nil && *found != *value {
			return nil
		}
		found = value
	}
	return found
}

func editionField(race *models.Race, kind models.CompetitionKind) **int {
	if kind == models.KindTrophy {
		return &race.TrophyEdition
	}
	return &race.FlagEdition
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatInt(v *int) string {
	if v == nil {
		return "unset"
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%q", *v)
}
