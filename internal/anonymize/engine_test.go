package anonymize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilpipe/veilpipe/internal/schema"
	"github.com/veilpipe/veilpipe/pkg/types"
)

// fixedNow keeps age bucketing stable across test runs.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(schema.PersonSchema())
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestEngine_EmailDomain(t *testing.T) {
	tests := []struct {
		name  string
		email interface{}
		want  string
	}{
		{"plain email", "user@example.com", "example.com"},
		{"two separators", "user@sub@example.com", types.EmailFallback},
		{"empty string", "", types.EmailFallback},
		{"no separator", "userexample.com", types.EmailFallback},
		{"non-string", 42, types.EmailFallback},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := e.Anonymize(types.RawRecord{"email": tt.email})
			require.NoError(t, err)
			assert.Equal(t, tt.want, record["email"])
		})
	}
}

func TestEngine_AgeBucket(t *testing.T) {
	tests := []struct {
		name     string
		birthday interface{}
		want     string
	}{
		{"age exactly 30", "1994-03-01", "[30-40]"},
		{"age 35", "1989-01-10", "[30-40]"},
		{"age 65", "1959-01-01", "[60-70]"},
		{"age 9", "2014-09-20", "[0-10]"},
		{"birthday later this year", "1994-12-01", "[20-30]"},
		{"birthday today", "1994-06-15", "[30-40]"},
		{"unparsable date", "15.06.1994", types.AgeUnknown},
		{"non-string", 1994, types.AgeUnknown},
		{"future birthdate buckets mechanically", "2030-01-01", "[-10-0]"},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := e.Anonymize(types.RawRecord{"birthday": tt.birthday})
			require.NoError(t, err)
			assert.Equal(t, tt.want, record["birthday"])
		})
	}
}

func TestEngine_MaskedFieldsNeverRetainOriginal(t *testing.T) {
	e := newTestEngine(t)

	raw := types.RawRecord{
		"firstname": "Ada",
		"lastname":  "Lovelace",
		"phone":     "+49-30-1234567",
		"address": map[string]interface{}{
			"street":  "Unter den Linden 1",
			"zipcode": "10117",
		},
	}

	record, err := e.Anonymize(raw)
	require.NoError(t, err)

	for _, field := range []string{"firstname", "lastname", "phone", "street", "zipcode"} {
		assert.Equal(t, types.MaskSentinel, record[field], "field %s", field)
	}
	// Absent masked fields are omitted, not defaulted.
	_, present := record["website"]
	assert.False(t, present)
}

func TestEngine_CoordinateNoise(t *testing.T) {
	e := newTestEngine(t)

	// Input with more than 6 decimal places: rounding alone guarantees the
	// output differs even when the hashed offset happens to be zero.
	raw := types.RawRecord{"latitude": 52.5200066123, "longitude": 13.4049540987}
	record, err := e.Anonymize(raw)
	require.NoError(t, err)

	radiusDeg := float64(DefaultRadiusKm) / kmPerDegree

	lat, ok := record["latitude"].(float64)
	require.True(t, ok)
	assert.NotEqual(t, 52.5200066123, lat)
	assert.InDelta(t, 52.5200066123, lat, radiusDeg)

	lon, ok := record["longitude"].(float64)
	require.True(t, ok)
	assert.NotEqual(t, 13.4049540987, lon)
	assert.InDelta(t, 13.4049540987, lon, radiusDeg)
}

func TestEngine_CoordinateNullPassesThrough(t *testing.T) {
	e := newTestEngine(t)

	record, err := e.Anonymize(types.RawRecord{"latitude": nil})
	require.NoError(t, err)

	v, present := record["latitude"]
	require.True(t, present)
	assert.Nil(t, v)
}

func TestEngine_NestedAddressLookup(t *testing.T) {
	e := newTestEngine(t)

	raw := types.RawRecord{
		"email": "user@gmail.com",
		"address": map[string]interface{}{
			"country":      "Germany",
			"city":         "Berlin",
			"country_code": "DE",
		},
	}

	record, err := e.Anonymize(raw)
	require.NoError(t, err)
	assert.Equal(t, "Germany", record["country"])
	assert.Equal(t, "Berlin", record["city"])
	assert.Equal(t, "DE", record["country_code"])
}

func TestEngine_MissingFieldOmitted(t *testing.T) {
	e := newTestEngine(t)

	record, err := e.Anonymize(types.RawRecord{"gender": "female"})
	require.NoError(t, err)

	assert.Equal(t, "female", record["gender"])
	_, present := record["country"]
	assert.False(t, present)
}

func TestEngine_AnonymizeAllSkipsFailedRecords(t *testing.T) {
	e := newTestEngine(t)

	raws := []types.RawRecord{
		{"gender": "male", "country": "US"},
		nil, // fails, skipped
		{"gender": "female", "latitude": []string{"not", "numeric"}}, // fails, skipped
		{"gender": "other", "country": "Japan"},
	}

	records := e.AnonymizeAll(raws)
	require.Len(t, records, 2)
	assert.Equal(t, "US", records[0]["country"])
	assert.Equal(t, "Japan", records[1]["country"])

	processed, skipped := e.Stats().Counts()
	assert.Equal(t, int64(2), processed)
	assert.Equal(t, int64(2), skipped)
}

func TestEngine_StatsTracksFallbacks(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Anonymize(types.RawRecord{"email": "not-an-email", "birthday": "bad-date"})
	require.NoError(t, err)

	top := e.Stats().TopFallbackFields(5)
	require.Len(t, top, 2)
	fields := []string{top[0].Field, top[1].Field}
	assert.ElementsMatch(t, []string{"email", "birthday"}, fields)
}
