// Package gtfsrt counts trip updates in a GTFS-realtime FeedMessage without
// depending on generated protobuf message types. There is no protoc step in
// this build, so the message is walked field-by-field with
// google.golang.org/protobuf/encoding/protowire instead.
//
// Wire layout exercised (see the GTFS-realtime proto):
//
//	message FeedMessage {
//	  repeated FeedEntity entity = 2;
//	}
//	message FeedEntity {
//	  TripUpdate trip_update = 3;
//	}
package gtfsrt

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldEntity     = protowire.Number(2)
	fieldTripUpdate = protowire.Number(3)
)

// CountTripUpdates parses a serialized FeedMessage and returns the number of
// top-level entities that carry a trip_update field.
func CountTripUpdates(data []byte) (int, error) {
	count := 0

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, fmt.Errorf("gtfsrt: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldEntity || typ != protowire.BytesType {
			skip := protowire.ConsumeFieldValue(num, typ, data)
			if skip < 0 {
				return 0, fmt.Errorf("gtfsrt: malformed field %d: %w", num, protowire.ParseError(skip))
			}
			data = data[skip:]
			continue
		}

		entity, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, fmt.Errorf("gtfsrt: malformed entity: %w", protowire.ParseError(n))
		}
		data = data[n:]

		has, err := hasTripUpdate(entity)
		if err != nil {
			return 0, err
		}
		if has {
			count++
		}
	}

	return count, nil
}

func hasTripUpdate(entity []byte) (bool, error) {
	for len(entity) > 0 {
		num, typ, n := protowire.ConsumeTag(entity)
		if n < 0 {
			return false, fmt.Errorf("gtfsrt: malformed entity tag: %w", protowire.ParseError(n))
		}
		entity = entity[n:]

		if num == fieldTripUpdate && typ == protowire.BytesType {
			return true, nil
		}

		skip := protowire.ConsumeFieldValue(num, typ, entity)
		if skip < 0 {
			return false, fmt.Errorf("gtfsrt: malformed entity field %d: %w", num, protowire.ParseError(skip))
		}
		entity = entity[skip:]
	}
	return false, nil
}
