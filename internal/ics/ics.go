// Package ics serializes synthesized events to iCalendar text and reads
// them back, for the standalone-file output path.
package ics

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"postwmt/internal/models"
)

const productID = "-//postwmt//EN"

// Encode renders the event sequence as a standalone iCalendar file.
// Timestamps are written as UTC instants, so no VTIMEZONE is needed.
// Encoding is all-or-nothing: any malformed event fails the whole call.
func Encode(events []models.Event) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, ev := range events {
		ve, err := toComponent(ev)
		if err != nil {
			return "", err
		}
		cal.Children = append(cal.Children, ve)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

func toComponent(ev models.Event) (*ical.Component, error) {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return nil, fmt.Errorf("event %q has no instant set", ev.Title)
	}
	if !ev.End.After(ev.Start) {
		return nil, fmt.Errorf("event %q ends at or before its start", ev.Title)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.UID)
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetText(ical.PropDescription, ev.Description)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	for _, w := range ev.Warnings {
		p := ical.NewProp(ical.PropComment)
		p.SetText(w)
		ve.Props.Add(p)
	}
	return ve, nil
}

// Decode parses iCalendar text back into events. Used for round-trip
// verification and by the CalDAV collaborator when listing.
func Decode(r io.Reader) ([]models.Event, error) {
	dec := ical.NewDecoder(r)
	var events []models.Event
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		evs, err := FromCalendar(cal)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

// FromCalendar extracts events from an already-parsed calendar.
func FromCalendar(cal *ical.Calendar) ([]models.Event, error) {
	var events []models.Event
	for _, ve := range cal.Events() {
		start, err := ve.DateTimeStart(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad DTSTART: %w", err)
		}
		end, err := ve.DateTimeEnd(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad DTEND: %w", err)
		}
		ev := models.Event{Start: start, End: end}
		if p := ve.Props.Get(ical.PropUID); p != nil {
			ev.UID = p.Value
		}
		if p := ve.Props.Get(ical.PropSummary); p != nil {
			ev.Title = p.Value
		}
		if p := ve.Props.Get(ical.PropDescription); p != nil {
			ev.Description = p.Value
		}
		events = append(events, ev)
	}
	return events, nil
}
