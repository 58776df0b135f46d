package domain

// Classification is the verdict on a single publish failure: either a retry
// can fix it (system failure) or it cannot (poison pill). There is no third
// option; unknown failures classify as system so a false retry is the worst
// case, never a false quarantine.
type Classification int

const (
	ClassSystemFailure Classification = iota
	ClassPoisonPill
)

func (c Classification) String() string {
	if c == ClassPoisonPill {
		return "POISON_PILL"
	}
	return "SYSTEM_FAILURE"
}

// ResultKind tags a BatchResult.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultPoisonPill
	ResultSystemFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "SUCCESS"
	case ResultPoisonPill:
		return "POISON_PILL"
	default:
		return "SYSTEM_FAILURE"
	}
}

// PoisonedEntry identifies the outbox row that failed permanently and why.
type PoisonedEntry struct {
	EntryID int64
	Reason  string
}

// BatchResult is the outcome of publishing one per-portfolio outbox group.
// SuccessfulIDs is always a contiguous prefix of the input batch, ending at
// the first failure; the dispatcher marks exactly that prefix SENT.
//
//   - ResultSuccess: every entry published; SuccessfulIDs is the whole batch.
//   - ResultPoisonPill: Poison names the offending entry; it is quarantined
//     and the entries after it stay PENDING for the next iteration.
//   - ResultSystemFailure: the failing entry and everything after it stay
//     PENDING; the dispatcher backs off and retries.
type BatchResult struct {
	Kind          ResultKind
	SuccessfulIDs []int64
	Poison        *PoisonedEntry
}

// SuccessResult reports a fully published batch.
func SuccessResult(ids []int64) BatchResult {
	return BatchResult{Kind: ResultSuccess, SuccessfulIDs: ids}
}

// PoisonPillResult reports a permanent failure at entry id after the given
// successful prefix.
func PoisonPillResult(prefix []int64, id int64, reason string) BatchResult {
	return BatchResult{
		Kind:          ResultPoisonPill,
		SuccessfulIDs: prefix,
		Poison:        &PoisonedEntry{EntryID: id, Reason: reason},
	}
}

// SystemFailureResult reports a transient failure after the given prefix.
func SystemFailureResult(prefix []int64) BatchResult {
	return BatchResult{Kind: ResultSystemFailure, SuccessfulIDs: prefix}
}
