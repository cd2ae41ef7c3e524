package anonymize

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/veilpipe/veilpipe/pkg/types"
)

// kmPerDegree approximates the length of one decimal degree at the equator.
const kmPerDegree = 111.139

// birthdayLayout is the date format the upstream source uses for birthdates.
const birthdayLayout = "2006-01-02"

// Outcome is the tagged result of a single field transform. Fallback marks
// values that could not be derived from the input and were replaced by a
// fixed sentinel; a fallback never aborts the record.
type Outcome struct {
	Value    interface{}
	Fallback bool
}

// Transform converts one raw field value into its anonymized form.
// A returned error aborts the whole record; malformed-but-tolerated inputs
// yield a fallback Outcome instead.
type Transform func(value interface{}) (Outcome, error)

func passthrough(value interface{}) (Outcome, error) {
	return Outcome{Value: value}, nil
}

// emailDomain reduces an email address to its domain part. Anything that is
// not a string split by exactly one "@" falls back to the email sentinel.
func emailDomain(value interface{}) (Outcome, error) {
	s, ok := value.(string)
	if !ok {
		return Outcome{Value: types.EmailFallback, Fallback: true}, nil
	}
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return Outcome{Value: types.EmailFallback, Fallback: true}, nil
	}
	return Outcome{Value: parts[1]}, nil
}

// ageBucket generalizes a YYYY-MM-DD birthdate into a decade bucket label
// such as "[30-40]", relative to now. Unparsable input falls back to the
// unknown-age sentinel. Ages outside any plausible range still bucket
// mechanically; no range validation is performed.
func ageBucket(value interface{}, now time.Time) (Outcome, error) {
	s, ok := value.(string)
	if !ok {
		return Outcome{Value: types.AgeUnknown, Fallback: true}, nil
	}
	birth, err := time.Parse(birthdayLayout, s)
	if err != nil {
		return Outcome{Value: types.AgeUnknown, Fallback: true}, nil
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}

	start := floorToTen(age)
	return Outcome{Value: fmt.Sprintf("[%d-%d]", start, start+10)}, nil
}

// floorToTen floors to the nearest lower multiple of 10, including for
// negative ages.
func floorToTen(age int) int {
	start := age / 10 * 10
	if age < 0 && age%10 != 0 {
		start -= 10
	}
	return start
}

// perturbCoordinate applies bounded noise to a coordinate. The offset
// magnitude is derived from a stable murmur3 hash of the value reduced modulo
// the radius in kilometers, applied in a randomly chosen sign direction and
// scaled to decimal degrees. A null coordinate passes through as null.
// Note the deliberate asymmetry: the magnitude is value-derived but the sign
// is independently random, so repeated runs over the same input do not
// reproduce identical output.
func perturbCoordinate(value interface{}, radiusKm int) (Outcome, error) {
	if value == nil {
		return Outcome{Value: nil}, nil
	}
	coord, ok := toFloat(value)
	if !ok {
		return Outcome{}, fmt.Errorf("anonymize: coordinate value %v (%T) is not numeric", value, value)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(coord))
	offsetKm := float64(murmur3.Sum64(buf[:]) % uint64(radiusKm))

	sign := 1.0
	if rand.Intn(2) == 0 {
		sign = -1.0
	}

	perturbed := coord + sign*offsetKm/kmPerDegree
	return Outcome{Value: math.Round(perturbed*1e6) / 1e6}, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
