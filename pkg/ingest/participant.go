package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rowstack/regatta/internal/tracing"
	"github.com/rowstack/regatta/pkg/models"
	"github.com/rowstack/regatta/pkg/normalizers"
)

// ResolveParticipant maps one scraped crew row onto a race's participant
// set. A participant is never silently dropped: an unresolvable club
// escalates to the decision channel before giving up. Every contributing
// source lands in the participant's provenance; when provenance is the only
// change, the row updates without a prompt.
func (e *Engine) ResolveParticipant(ctx context.Context, race *models.Race, datasource string, scraped models.ScrapedParticipant) (*models.Participant, Status, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Engine.ResolveParticipant")
	defer span.End()

	rawName := scraped.ClubNameRaw
	if rawName == "" {
		rawName = scraped.ParticipantName
	}
	branch := normalizers.BranchLetter(rawName)

	club, err := e.resolveClub(ctx, scraped.ParticipantName)
	if err != nil {
		return nil, StatusIgnore, err
	}

	record, err := models.NewProvenance(datasource).Build()
	if err != nil {
		return nil, StatusIgnore, err
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"race_id": race.ID,
		"club":    club.Name,
		"branch":  branch,
	})

	candidates, err := e.participants.FindByRaceAndClub(ctx, race.ID, club.ID, scraped.Gender, scraped.Category)
	if err != nil {
		return nil, StatusIgnore, err
	}
	candidates = filterByBranch(candidates, branch)

	if len(candidates) == 0 {
		participant := buildParticipant(race, club, branch, rawName, scraped)
		participant.Metadata.AddDatasource(record)
		return participant, StatusNew, nil
	}

	existing := &candidates[0]
	tracked := existing.Metadata.AddDatasource(record)
	if !mergeWorthy(existing, rawName, scraped) {
		if tracked {
			log.Debug("Recorded a new source on an existing participant")
			return existing, StatusMerged, nil
		}
		log.Debug("Participant already recorded")
		return existing, StatusExisting, nil
	}

	e.mergeParticipant(existing, rawName, scraped)
	return existing, StatusMerged, nil
}

// CommitParticipant writes a resolved participant. The race must be in the
// store already: a participant of an uncommitted race has nothing to point
// at.
func (e *Engine) CommitParticipant(ctx context.Context, participant *models.Participant, raceStatus, status Status) (*models.Participant, Status, error) {
	ctx, span := tracing.StartSpan(ctx, "ingest.Engine.CommitParticipant")
	defer span.End()

	if !status.NeedsCommit() {
		return participant, status, nil
	}
	if !raceStatus.Committed() {
		return participant, status, models.StopProcessing("race %s is not committed, cannot save its participant", participant.RaceID)
	}

	var err error
	if status == StatusNew {
		if !e.channel.Confirm(fmt.Sprintf("create participant %v in race %s?", participant.ClubNames, participant.RaceID)) {
			return participant, status, models.StopProcessing("save rejected for participant %v", participant.ClubNames)
		}
		err = e.participants.Create(ctx, participant)
	} else {
		err = e.participants.Update(ctx, participant)
	}
	if err != nil {
		return participant, status, err
	}
	return participant, status.Next(), nil
}

// SavePenalty records a penalty for a committed participant. An existing
// penalty with a compatible (reason, disqualification) pair is extended
// instead of duplicated: a missing reason gets filled, a new note appended.
func (e *Engine) SavePenalty(ctx context.Context, participant *models.Participant, scraped *models.ScrapedPenalty) error {
	if scraped == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "ingest.Engine.SavePenalty")
	defer span.End()

	existing, err := e.penalties.FindByParticipant(ctx, participant.ID)
	if err != nil {
		return err
	}
	for i := range existing {
		penalty := &existing[i]
		if penalty.Disqualification != scraped.Disqualification {
			continue
		}
		if penalty.Reason != nil && scraped.Reason != nil && *penalty.Reason != *scraped.Reason {
			continue
		}

		changed := false
		if penalty.Reason == nil && scraped.Reason != nil {
			penalty.Reason = scraped.Reason
			changed = true
		}
		if scraped.Note != nil && appendNote(penalty, *scraped.Note) {
			changed = true
		}
		if !changed {
			return nil
		}
		return e.penalties.Update(ctx, penalty)
	}

	penalty := &models.Penalty{
		ParticipantID:    participant.ID,
		Amount:           scraped.Amount,
		Disqualification: scraped.Disqualification,
		Reason:           scraped.Reason,
	}
	if scraped.Note != nil {
		penalty.Notes = pq.StringArray{*scraped.Note}
	}
	return e.penalties.Create(ctx, penalty)
}

// appendNote adds a note unless it is already recorded.
func appendNote(penalty *models.Penalty, note string) bool {
	for _, recorded := range penalty.Notes {
		if recorded == note {
			return false
		}
	}
	penalty.Notes = append(penalty.Notes, note)
	return true
}

// resolveClub resolves the club label, asking the decision channel for a
// corrected name once before failing the record.
func (e *Engine) resolveClub(ctx context.Context, name string) (*models.Entity, error) {
	club, err := e.entities.ResolveClub(ctx, name)
	if err == nil {
		return club, nil
	}
	if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrAmbiguousMatch) {
		return nil, err
	}

	if corrected, ok := e.channel.Text(fmt.Sprintf("club %q did not resolve (%v), correct name?", name, err)); ok {
		club, err = e.entities.ResolveClub(ctx, corrected)
		if err == nil {
			return club, nil
		}
	}
	return nil, models.StopProcessing("club %q did not resolve", name)
}

// mergeWorthy decides whether the incoming row improves on the stored one:
// more laps, a disagreeing non-null lane, or a club-name label the stored
// row is missing.
func mergeWorthy(existing *models.Participant, rawName string, scraped models.ScrapedParticipant) bool {
	if len(scraped.Laps) > len(existing.Laps) {
		return true
	}
	if scraped.Lane != nil && (existing.Lane == nil || *existing.Lane != *scraped.Lane) {
		return true
	}
	return missingClubName(existing, rawName)
}

func missingClubName(existing *models.Participant, rawName string) bool {
	clean := normalizers.WhitespacesClean(normalizers.Uppercase(rawName))
	for _, name := range existing.ClubNames {
		if name == clean {
			return false
		}
	}
	return clean != ""
}

// addClubName folds in the raw club label when it is new. Returns true when
// something changed.
func (e *Engine) addClubName(existing *models.Participant, rawName string) bool {
	clean := normalizers.WhitespacesClean(normalizers.Uppercase(rawName))
	for _, name := range existing.ClubNames {
		if name == clean {
			return false
		}
	}
	existing.ClubNames = append(existing.ClubNames, clean)
	return true
}

// mergeParticipant updates the disputed fields of the stored row, each
// under its own approval.
func (e *Engine) mergeParticipant(existing *models.Participant, rawName string, scraped models.ScrapedParticipant) {
	e.addClubName(existing, rawName)

	if len(scraped.Laps) > len(existing.Laps) {
		if e.channel.Confirm(fmt.Sprintf("replace %d laps with %d for %v?", len(existing.Laps), len(scraped.Laps), existing.ClubNames)) {
			existing.Laps = pq.StringArray(scraped.Laps)
		}
	}
	if scraped.Lane != nil && (existing.Lane == nil || *existing.Lane != *scraped.Lane) {
		e.offerInt(&existing.Lane, scraped.Lane, "lane")
	}
	if scraped.Distance != nil && existing.Distance == nil {
		existing.Distance = scraped.Distance
	}
	if scraped.Series != nil && existing.Series == nil {
		existing.Series = scraped.Series
	}
	if scraped.Retired {
		existing.Retired = true
	}
	if scraped.Absent {
		existing.Absent = true
	}
}

// filterByBranch keeps only candidates of the same branch tier: a main crew
// never matches a B/C/D row and a branch crew only matches its own letter.
func filterByBranch(candidates []models.Participant, branch string) []models.Participant {
	var out []models.Participant
	for _, candidate := range candidates {
		switch {
		case branch == "" && candidate.Branch == nil:
			out = append(out, candidate)
		case branch != "" && candidate.Branch != nil && *candidate.Branch == branch:
			out = append(out, candidate)
		}
	}
	return out
}

func buildParticipant(race *models.Race, club *models.Entity, branch, rawName string, scraped models.ScrapedParticipant) *models.Participant {
	participant := &models.Participant{
		RaceID:    race.ID,
		ClubID:    club.ID,
		ClubNames: pq.StringArray{normalizers.WhitespacesClean(normalizers.Uppercase(rawName))},
		Distance:  scraped.Distance,
		Laps:      pq.StringArray(scraped.Laps),
		Lane:      scraped.Lane,
		Series:    scraped.Series,
		Handicap:  scraped.Handicap,
		Gender:    scraped.Gender,
		Category:  scraped.Category,
		Guest:     scraped.Guest,
		Absent:    scraped.Absent,
		Retired:   scraped.Retired,
	}
	if branch != "" {
		participant.Branch = &branch
	}
	return participant
}
