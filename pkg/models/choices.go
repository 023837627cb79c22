package models

// Gender values. GenderAll is a race-level sentinel meaning the event ran
// mixed sub-events; participants always carry a concrete gender.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderAll    = "ALL"
	GenderMix    = "MIX"
)

// Genders lists the values a participant can carry.
var Genders = []string{GenderMale, GenderFemale, GenderMix}

// RaceGenders lists the values a race can carry.
var RaceGenders = []string{GenderMale, GenderFemale, GenderAll}

// Category values. CategoryAll is the race-level sentinel.
const (
	CategoryAbsolut = "ABSOLUT"
	CategoryVeteran = "VETERAN"
	CategorySchool  = "SCHOOL"
	CategoryAll     = "ALL"
)

var Categories = []string{CategoryAbsolut, CategoryVeteran, CategorySchool}

// Race types.
const (
	RaceConventional = "CONVENTIONAL"
	RaceTimeTrial    = "TIME_TRIAL"
)

var RaceTypes = []string{RaceConventional, RaceTimeTrial}

// Modalities.
const (
	ModalityTrainera    = "TRAINERA"
	ModalityTrainerilla = "TRAINERILLA"
	ModalityBatel       = "BATEL"
)

var Modalities = []string{ModalityTrainera, ModalityTrainerilla, ModalityBatel}

// Entity types.
const (
	EntityClub       = "CLUB"
	EntityLeague     = "LEAGUE"
	EntityFederation = "FEDERATION"
	EntityPrivate    = "PRIVATE"
)

var EntityTypes = []string{EntityClub, EntityLeague, EntityFederation, EntityPrivate}

// Penalty reasons.
const (
	PenaltyBoatWeightLimit    = "BOAT_WEIGHT_LIMIT"
	PenaltyCollision          = "COLLISION"
	PenaltyCovidAbsence       = "COVID_ABSENCE"
	PenaltyCoxwainWeightLimit = "COXWAIN_WEIGHT_LIMIT"
	PenaltyNoLineStart        = "NO_LINE_START"
	PenaltyNullStart          = "NULL_START"
	PenaltyOffTheField        = "OFF_THE_FIELD"
	PenaltySinking            = "SINKING"
	PenaltyStarboardTack      = "STARBOARD_TACK"
	PenaltyWrongLineup        = "WRONG_LINEUP"
	PenaltyWrongRoute         = "WRONG_ROUTE"
)

var PenaltyReasons = []string{
	PenaltyBoatWeightLimit,
	PenaltyCollision,
	PenaltyCovidAbsence,
	PenaltyCoxwainWeightLimit,
	PenaltyNoLineStart,
	PenaltyNullStart,
	PenaltyOffTheField,
	PenaltySinking,
	PenaltyStarboardTack,
	PenaltyWrongLineup,
	PenaltyWrongRoute,
}
