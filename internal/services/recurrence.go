// Package services provides business logic and orchestration services.
//
// This file maps each repetition type to the calendar step used when an
// origin transaction is expanded into its future occurrences.

package services

import (
	"fmt"
	"time"

	"haushalt/internal/core"
)

// HorizonMonths bounds how far ahead occurrences are generated, counted from now.
const HorizonMonths = 12

// Recurrence advances a cursor to the next occurrence date.
type Recurrence interface {
	Next(cursor time.Time) time.Time
}

// MonthStep advances by a fixed number of calendar months, clamping to the
// last day of the target month.
type MonthStep int

func (s MonthStep) Next(cursor time.Time) time.Time {
	return core.AddMonths(cursor, int(s))
}

var recurrences = map[core.Repetition]Recurrence{
	core.Monthly:   MonthStep(1),
	core.Quarterly: MonthStep(3),
	core.Annually:  MonthStep(12),
}

// GetRecurrence returns the step for a repetition type.
// core.NoRepeat and unknown values have none.
func GetRecurrence(r core.Repetition) (Recurrence, error) {
	rec, ok := recurrences[r]
	if !ok {
		return nil, fmt.Errorf("no recurrence for repetition %q", r)
	}
	return rec, nil
}

// GenerateOccurrences expands a repeating candidate into the copies that fall
// strictly before now + HorizonMonths. The first occurrence is one step after
// the candidate's own date and each following one is one step after the
// previous, so clamped days stay clamped (31 Jan, 29 Feb, 29 Mar).
//
// Occurrences get ids from next, never equal to candidate.ID, and point back
// to the candidate through OriginalID. A non-repeating candidate or one whose
// date does not parse yields nothing, and so does one dated at or past the
// horizon. Steps between the candidate's date and today are emitted too.
func GenerateOccurrences(candidate core.Transaction, now time.Time, next func() int64) []core.Transaction {
	rec, err := GetRecurrence(candidate.Repeating)
	if err != nil {
		return nil
	}
	start, err := core.ParseDate(candidate.Date)
	if err != nil {
		return nil
	}

	horizon := horizonOf(now)
	var out []core.Transaction
	for cursor := rec.Next(start.Time); cursor.Before(horizon); cursor = rec.Next(cursor) {
		occ := candidate.Clone()
		occ.ID = next()
		for occ.ID == candidate.ID {
			occ.ID = next()
		}
		occ.Date = core.FormatDate(cursor)
		occ.OriginalID = core.ID(candidate.ID)
		out = append(out, occ)
	}
	return out
}

// horizonOf returns now + HorizonMonths on the UTC calendar that stored dates
// parse into, keeping now's wall clock time of day.
func horizonOf(now time.Time) time.Time {
	day := core.DateOf(now).Time
	wall := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	return core.AddMonths(day.Add(wall), HorizonMonths)
}
