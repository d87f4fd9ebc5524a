package ics

import (
	"context"
	"errors"
	"strings"
	"time"

	appLog "famcal/internal/log"
	"famcal/internal/model"
)

// Client is the external-calendar collaborator: it hands back the
// concrete event occurrences for a requested range. The engine treats the
// result as read-only; per-occurrence user actions live in override
// records, never in the feed.
type Client struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
}

// NewClient builds a calendar client over the given feeds. loc is the
// display timezone for occurrence times; nil means time.Local.
func NewClient(cacheDir string, sources []Source, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		fetcher: NewFetcher(cacheDir),
		sources: sources,
		loc:     loc,
	}
}

// EventsForRange fetches, parses and expands every subscribed feed into
// the occurrences falling within [rangeStart, rangeEnd].
//
// A source that fails but has a cached body degrades silently to the
// cache. Only when every source fails outright does the call return an
// error: per the engine's error policy a fetch failure is propagated, not
// masked with an empty agenda.
func (c *Client) EventsForRange(ctx context.Context, rangeStart, rangeEnd time.Time) ([]model.CalendarEvent, error) {
	if len(c.sources) == 0 {
		return []model.CalendarEvent{}, nil
	}

	results, errs := c.fetcher.FetchAll(ctx, c.sources)
	if len(results) == 0 && len(errs) > 0 {
		return nil, errorsAggregate(errs)
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("calendar: parse failed for source", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	return ExpandEvents(parsed, ExpandConfig{
		DisplayLocation: c.loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
}

// EventsForDay is EventsForRange for one local calendar day.
func (c *Client) EventsForDay(ctx context.Context, d model.Date) ([]model.CalendarEvent, error) {
	start := d.At(0, 0, c.loc)
	return c.EventsForRange(ctx, start, start.AddDate(0, 0, 1).Add(-time.Nanosecond))
}

func errorsAggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return errors.New(b.String())
}
