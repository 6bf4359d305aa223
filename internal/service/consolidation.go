package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/bulletin-api/internal/models"
)

const (
	announcementTitleOpen  = `<h4 class="announcement-item-title">`
	announcementTitleClose = `</h4>`
	announcementSeparator  = "<br><br>"
)

// ConsolidateAnnouncements merges announcements sharing an audience into one entry per
// audience, in order of first appearance. Single-member groups are returned unchanged.
// Merged entries carry each member's title as an inline header, an empty title, the
// general category and a new id. The operation has no inverse.
func ConsolidateAnnouncements(items []models.Announcement) []models.Announcement {
	return consolidate(items, uuid.NewString)
}

func consolidate(items []models.Announcement, newID func() string) []models.Announcement {
	order := make([]models.AnnouncementAudience, 0)
	groups := make(map[models.AnnouncementAudience][]models.Announcement)
	for _, item := range items {
		audience := models.NormalizeAudience(string(item.Audience))
		if _, seen := groups[audience]; !seen {
			order = append(order, audience)
		}
		groups[audience] = append(groups[audience], item)
	}

	out := make([]models.Announcement, 0, len(order))
	for _, audience := range order {
		members := groups[audience]
		if len(members) == 1 {
			single := members[0]
			single.Audience = audience
			out = append(out, single)
			continue
		}
		out = append(out, mergeGroup(audience, members, newID()))
	}
	return out
}

func mergeGroup(audience models.AnnouncementAudience, members []models.Announcement, id string) models.Announcement {
	blocks := make([]string, 0, len(members))
	var images []string
	for _, member := range members {
		images = append(images, member.Images...)
		if member.Title == "" && member.Content == "" {
			continue
		}
		var b strings.Builder
		if member.Title != "" {
			b.WriteString(announcementTitleOpen)
			b.WriteString(member.Title)
			b.WriteString(announcementTitleClose)
		}
		b.WriteString(member.Content)
		blocks = append(blocks, b.String())
	}
	return models.Announcement{
		ID:       id,
		Title:    "",
		Content:  strings.Join(blocks, announcementSeparator),
		Category: models.DefaultAnnouncementCategory,
		Audience: audience,
		Images:   images,
	}
}
