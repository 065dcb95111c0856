package bulletin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"wednesday", time.Date(2025, 10, 8, 15, 4, 5, 0, time.UTC), "2025-10-06"},
		{"monday midnight", time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC), "2025-10-06"},
		{"sunday night", time.Date(2025, 10, 12, 23, 59, 59, 0, time.UTC), "2025-10-06"},
		{"across month", time.Date(2025, 10, 2, 9, 0, 0, 0, time.UTC), "2025-09-29"},
		{"across year", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), "2025-12-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Week(tt.in)
			assert.Equal(t, tt.want, w.Format(time.DateOnly))
			assert.Equal(t, time.Monday, w.Weekday())
			assert.Zero(t, w.Hour())
		})
	}
}

func TestWeek_UsesLocation(t *testing.T) {
	ist := time.FixedZone("TRT", 3*3600)
	// Sunday 22:30 UTC is already Monday in Istanbul
	instant := time.Date(2025, 10, 12, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-10-06", Week(instant).Format(time.DateOnly))
	assert.Equal(t, "2025-10-13", Week(instant.In(ist)).Format(time.DateOnly))
}

func TestSlugAndTitle(t *testing.T) {
	week := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "verinin-dunyasi-2025-10-06", Slug(week))
	assert.Equal(t, "Verinin Dünyası 6 Ekim", Title(week))

	feb := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Verinin Dünyası 23 Şubat", Title(feb))
}
