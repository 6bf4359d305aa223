package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulletin-api/internal/models"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("merged-%d", n)
	}
}

func TestConsolidateMergesByAudience(t *testing.T) {
	items := []models.Announcement{
		{ID: "1", Title: "Activity", Content: "Friday at 7", Audience: models.AudienceYouth, Category: "event"},
		{ID: "2", Title: "Lesson", Content: "Chapter 4", Audience: models.AudienceReliefSociety},
		{ID: "3", Title: "Camp", Content: "Forms due", Audience: models.AudienceYouth, Images: []string{"camp.png"}},
	}

	out := consolidate(items, sequentialIDs())
	require.Len(t, out, 2)

	merged := out[0]
	assert.Equal(t, "merged-1", merged.ID)
	assert.Equal(t, models.AudienceYouth, merged.Audience)
	assert.Empty(t, merged.Title)
	assert.Equal(t, models.DefaultAnnouncementCategory, merged.Category)
	assert.Equal(t,
		`<h4 class="announcement-item-title">Activity</h4>Friday at 7<br><br><h4 class="announcement-item-title">Camp</h4>Forms due`,
		merged.Content,
	)
	assert.Equal(t, []string{"camp.png"}, merged.Images)

	assert.Equal(t, items[1], out[1])
}

func TestConsolidateIsIdempotent(t *testing.T) {
	items := []models.Announcement{
		{ID: "1", Title: "A", Content: "one", Audience: models.AudienceWard},
		{ID: "2", Title: "B", Content: "two", Audience: models.AudienceWard},
		{ID: "3", Title: "C", Content: "three", Audience: models.AudiencePrimary},
	}

	once := consolidate(items, sequentialIDs())
	twice := consolidate(once, sequentialIDs())
	assert.Equal(t, once, twice)
}

func TestConsolidatePreservesFirstAppearanceOrder(t *testing.T) {
	items := []models.Announcement{
		{ID: "1", Content: "a", Audience: models.AudienceStake},
		{ID: "2", Content: "b", Audience: models.AudienceWard},
		{ID: "3", Content: "c", Audience: models.AudienceStake},
		{ID: "4", Content: "d", Audience: models.AudiencePrimary},
		{ID: "5", Content: "e", Audience: ""},
	}

	out := consolidate(items, sequentialIDs())
	audiences := make([]models.AnnouncementAudience, len(out))
	for i, ann := range out {
		audiences[i] = ann.Audience
	}
	assert.Equal(t, []models.AnnouncementAudience{models.AudienceStake, models.AudienceWard, models.AudiencePrimary}, audiences)
	assert.Equal(t, "a<br><br>c", out[0].Content)
	assert.Equal(t, "b<br><br>e", out[1].Content)
}

func TestConsolidateSkipsEmptyMembers(t *testing.T) {
	items := []models.Announcement{
		{ID: "1", Audience: models.AudienceYoungMen},
		{ID: "2", Audience: models.AudienceYoungMen},
	}

	out := consolidate(items, sequentialIDs())
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Content)
	assert.Equal(t, models.AudienceYoungMen, out[0].Audience)
}

func TestConsolidateEmptyInput(t *testing.T) {
	assert.Empty(t, ConsolidateAnnouncements(nil))
}

func TestConsolidateNormalizesSingleMemberAudience(t *testing.T) {
	items := []models.Announcement{
		{ID: "1", Title: "Welcome", Content: "Visitors"},
		{ID: "2", Title: "Mutual", Content: "Wednesday", Audience: "Youth"},
	}

	out := consolidate(items, sequentialIDs())
	require.Len(t, out, 2)
	assert.Equal(t, models.AudienceWard, out[0].Audience)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, models.AudienceYouth, out[1].Audience)
	assert.Empty(t, items[0].Audience)
}
