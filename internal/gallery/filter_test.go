package gallery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/models"
)

func TestFilter(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "Distillation Workshop", Speaker: "A. Kumar", Location: "Lab 2", Date: "2024-02-01", Type: models.EventTypeWorkshop},
		{ID: "2", Title: "Annual Awards", Speaker: "Dean", Location: "Main Hall", Date: "2024-04-01", Type: models.EventTypeAward},
		{ID: "3", Title: "Refinery Visit", Speaker: "Plant Manager", Location: "Jamnagar", Date: "2024-05-10", Type: models.EventTypeIndustry},
		{ID: "4", Title: "Catalysis Talk", Speaker: "Prof. Lee", Location: "Main Hall", Date: "undated", Type: models.EventTypeTechTalk},
	}

	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"everything", Criteria{}, []string{"1", "2", "3", "4"}},
		{"all category", Criteria{Category: "all"}, []string{"1", "2", "3", "4"}},
		{"slug", Criteria{Category: "award-ceremony"}, []string{"2"}},
		{"display name", Criteria{Category: "Technical Talk"}, []string{"4"}},
		{"unknown category", Criteria{Category: "hackathon"}, []string{}},
		{"search title", Criteria{Search: "refinery"}, []string{"3"}},
		{"search speaker", Criteria{Search: "LEE"}, []string{"4"}},
		{"search location", Criteria{Search: "main hall"}, []string{"2", "4"}},
		{"combined", Criteria{Category: "technical-talk", Search: "hall"}, []string{"4"}},
		{"from", Criteria{From: time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC)}, []string{"2", "3"}},
		{"range", Criteria{From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}, []string{"1", "2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ids(Filter(events, tc.c)))
		})
	}
}
