// Package plc provides the counter-source capability: named controller tags
// read on demand by the machine poll loops. The transport is pluggable; the
// shipped implementation caches tag values published over MQTT by the edge
// gateway next to the controllers.
package plc

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("plc: tag unavailable")

// Source reads current tag values. Any error is a transient source fault: the
// caller aborts the cycle and retries with backoff.
type Source interface {
	// Read returns the current value of one tag.
	Read(ctx context.Context, tag string) (float64, error)
	// ReadAll reads a batch of tags; it fails as a whole if any tag is
	// unavailable so a cycle never runs on a partial sample.
	ReadAll(ctx context.Context, tags []string) (map[string]float64, error)
}

func readAll(ctx context.Context, s Source, tags []string) (map[string]float64, error) {
	values := make(map[string]float64, len(tags))
	for _, tag := range tags {
		v, err := s.Read(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", tag, err)
		}
		values[tag] = v
	}
	return values, nil
}
