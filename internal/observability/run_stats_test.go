package observability

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStats_RecordFallback(t *testing.T) {
	stats := NewRunStats()
	stats.RecordFallback("email")
	stats.RecordFallback("email")
	stats.RecordFallback("age")

	top := stats.TopFallbackFields(10)
	assert.Len(t, top, 2)
	assert.Equal(t, "email", top[0].Field)
	assert.Equal(t, int64(2), top[0].Fallbacks)
	assert.Equal(t, "age", top[1].Field)
	assert.False(t, top[0].LastSeen.IsZero())
}

func TestRunStats_TopFallbackFieldsLimit(t *testing.T) {
	stats := NewRunStats()
	for i := 0; i < 5; i++ {
		field := fmt.Sprintf("field%d", i)
		for j := 0; j <= i; j++ {
			stats.RecordFallback(field)
		}
	}

	top := stats.TopFallbackFields(2)
	assert.Len(t, top, 2)
	assert.Equal(t, "field4", top[0].Field)
	assert.Equal(t, "field3", top[1].Field)
}

func TestRunStats_TopFallbackFieldsEmpty(t *testing.T) {
	stats := NewRunStats()
	assert.Empty(t, stats.TopFallbackFields(5))
	assert.Empty(t, stats.TopFallbackFields(0))
}

func TestRunStats_Counts(t *testing.T) {
	stats := NewRunStats()
	stats.RecordProcessed()
	stats.RecordProcessed()
	stats.RecordSkipped()

	processed, skipped := stats.Counts()
	assert.Equal(t, int64(2), processed)
	assert.Equal(t, int64(1), skipped)
}

func TestRunStats_ConcurrentAccess(t *testing.T) {
	stats := NewRunStats()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.RecordFallback("email")
				stats.RecordProcessed()
				stats.TopFallbackFields(1)
			}
		}()
	}
	wg.Wait()

	processed, _ := stats.Counts()
	assert.Equal(t, int64(1000), processed)
	assert.Equal(t, int64(1000), stats.TopFallbackFields(1)[0].Fallbacks)
}
