package record

// Action storage step decided for a progress event
type Action int

// detector actions
const (
	ActionNone Action = iota
	ActionInsert
	ActionMarkFinished
	ActionUpdatePosition
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionMarkFinished:
		return "mark_finished"
	case ActionUpdatePosition:
		return "update_position"
	}
	return "none"
}

// Decision outcome of Decide
type Decision struct {
	Action Action
	// InsertFinished the inserted record starts finished, only set with ActionInsert
	InsertFinished bool
	// NewlyFinished the event is the first completion of the section,
	// provided the storage step applies
	NewlyFinished bool
}

// Decide choose what to store for event given the section's current record, nil if
// there is none. It touches no state.
//
// An exam counts as finished on submission. A video finishes once at least half of
// it was watched, but the first report of a section only establishes the record.
// Finished records never count again, refreshFinished lets their position follow
// later reports.
func Decide(existing *RecordModel, event *ProgressEvent, refreshFinished bool) Decision {
	if event.SectionType == SectionExam {
		switch {
		case existing == nil:
			return Decision{Action: ActionInsert, InsertFinished: true, NewlyFinished: true}
		case existing.Finished:
			return Decision{Action: ActionNone}
		default:
			return Decision{Action: ActionMarkFinished, NewlyFinished: true}
		}
	}

	switch {
	case existing == nil:
		return Decision{Action: ActionInsert}
	case existing.Finished:
		if refreshFinished {
			return Decision{Action: ActionUpdatePosition}
		}
		return Decision{Action: ActionNone}
	case halfWatched(event.Moment, event.Duration):
		return Decision{Action: ActionMarkFinished, NewlyFinished: true}
	default:
		return Decision{Action: ActionUpdatePosition}
	}
}

func halfWatched(moment, duration int) bool {
	return moment*2 >= duration
}
