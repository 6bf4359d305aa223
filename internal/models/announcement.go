package models

import "strings"

// AnnouncementAudience identifies which organisation an announcement targets.
type AnnouncementAudience string

const (
	AudienceWard          AnnouncementAudience = "ward"
	AudienceReliefSociety AnnouncementAudience = "relief_society"
	AudienceEldersQuorum  AnnouncementAudience = "elders_quorum"
	AudienceYoungWomen    AnnouncementAudience = "young_women"
	AudienceYoungMen      AnnouncementAudience = "young_men"
	AudienceYouth         AnnouncementAudience = "youth"
	AudiencePrimary       AnnouncementAudience = "primary"
	AudienceStake         AnnouncementAudience = "stake"
	AudienceOther         AnnouncementAudience = "other"
)

// Audiences lists the closed audience set in display order.
var Audiences = []AnnouncementAudience{
	AudienceWard,
	AudienceReliefSociety,
	AudienceEldersQuorum,
	AudienceYoungWomen,
	AudienceYoungMen,
	AudienceYouth,
	AudiencePrimary,
	AudienceStake,
	AudienceOther,
}

// Valid reports whether the audience belongs to the closed set.
func (a AnnouncementAudience) Valid() bool {
	for _, known := range Audiences {
		if a == known {
			return true
		}
	}
	return false
}

// NormalizeAudience lower-cases the value and falls back to ward when empty.
func NormalizeAudience(raw string) AnnouncementAudience {
	value := AnnouncementAudience(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return AudienceWard
	}
	return value
}

// DefaultAnnouncementCategory is applied to announcements created without one.
const DefaultAnnouncementCategory = "general"

// Announcement is a single entry in a bulletin's announcement list.
type Announcement struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Content  string               `json:"content"`
	Category string               `json:"category"`
	Audience AnnouncementAudience `json:"audience"`
	Images   []string             `json:"images,omitempty"`
}

// SameText reports whether both announcements carry identical title and content.
func (a Announcement) SameText(other Announcement) bool {
	return a.Title == other.Title && a.Content == other.Content
}
