package ingest

// Status tracks a record through the resolve/commit pipeline. NEW and MERGED
// are pre-commit states; CREATED and UPDATED are their post-commit
// counterparts. EXISTING and IGNORE mean no write is needed.
type Status string

const (
	StatusIgnore   Status = "IGNORE"
	StatusExisting Status = "EXISTING"
	StatusNew      Status = "NEW"
	StatusMerged   Status = "MERGED"
	StatusCreated  Status = "CREATED"
	StatusUpdated  Status = "UPDATED"
)

// Next advances the status past a successful commit. Terminal states map to
// themselves, so committing twice is harmless.
func (s Status) Next() Status {
	switch s {
	case StatusNew:
		return StatusCreated
	case StatusMerged:
		return StatusUpdated
	default:
		return s
	}
}

// NeedsCommit reports whether the status still has a pending write.
func (s Status) NeedsCommit() bool {
	return s == StatusNew || s == StatusMerged
}

// Committed reports whether the record exists in the store, either because
// it was already there or because a commit just landed.
func (s Status) Committed() bool {
	return s == StatusExisting || s == StatusCreated || s == StatusUpdated
}
