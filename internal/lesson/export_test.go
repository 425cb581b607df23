package lesson

import "time"

// SetClock replace the clock of the use case
func (lu *LessonUseCaseImpl) SetClock(now func() time.Time) {
	lu.now = now
}
