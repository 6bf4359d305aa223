package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/htmlsanitize"
)

const isoDate = "2006-01-02"

var meetingTypes = map[models.MeetingType]struct{}{
	models.MeetingSacrament:     {},
	models.MeetingFastTestimony: {},
	models.MeetingStakeConf:     {},
	models.MeetingWardConf:      {},
	models.MeetingSpecial:       {},
}

// NormalizeDocument applies the document invariants: ids on every announcement and agenda
// item, default audience and category, sanitized rich text, and exactly one sacrament item
// for sacrament meetings.
func NormalizeDocument(doc models.BulletinDocument) models.BulletinDocument {
	doc.LeadershipMessage = htmlsanitize.Sanitize(doc.LeadershipMessage)

	announcements := make([]models.Announcement, len(doc.Announcements))
	for i, ann := range doc.Announcements {
		if strings.TrimSpace(ann.ID) == "" {
			ann.ID = uuid.NewString()
		}
		ann.Audience = models.NormalizeAudience(string(ann.Audience))
		if strings.TrimSpace(ann.Category) == "" {
			ann.Category = models.DefaultAnnouncementCategory
		}
		ann.Content = htmlsanitize.Sanitize(ann.Content)
		announcements[i] = ann
	}
	doc.Announcements = announcements

	agenda := make([]models.AgendaItem, 0, len(doc.Agenda)+1)
	seenSacrament := false
	for _, item := range doc.Agenda {
		if item.Type == models.AgendaSacrament {
			if seenSacrament {
				continue
			}
			seenSacrament = true
		}
		if strings.TrimSpace(item.ID) == "" {
			item.ID = uuid.NewString()
		}
		agenda = append(agenda, item)
	}
	if doc.MeetingType == models.MeetingSacrament && !seenSacrament {
		agenda = append([]models.AgendaItem{newSacramentItem()}, agenda...)
	}
	doc.Agenda = agenda

	doc.Meetings = assignMeetingIDs(doc.Meetings)
	doc.SpecialEvents = assignEventIDs(doc.SpecialEvents)
	return doc
}

// ValidateDocument reports the first invariant a document about to be saved violates.
func ValidateDocument(doc models.BulletinDocument) error {
	if _, err := time.Parse(isoDate, doc.Date); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "date must be an ISO calendar date (YYYY-MM-DD)")
	}
	if _, ok := meetingTypes[doc.MeetingType]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown meeting type %q", doc.MeetingType))
	}
	for _, ann := range doc.Announcements {
		if ann.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "announcement id is required")
		}
		if !ann.Audience.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown audience %q", ann.Audience))
		}
	}
	sacraments := 0
	for _, item := range doc.Agenda {
		if item.Type == models.AgendaSacrament {
			sacraments++
		}
	}
	if doc.MeetingType == models.MeetingSacrament && sacraments != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "sacrament meetings need exactly one sacrament agenda item")
	}
	if pos := doc.ImagePosition; pos != nil && (pos.X < 0 || pos.X > 100 || pos.Y < 0 || pos.Y > 100) {
		return appErrors.Clone(appErrors.ErrValidation, "image position must be between 0 and 100 percent")
	}
	return nil
}

// BlankDocument builds the starting document for a new bulletin dated on the next Sunday.
func BlankDocument(defaults models.FieldDefaults, now time.Time) models.BulletinDocument {
	doc := models.BulletinDocument{
		WardName:      defaults.WardName,
		Date:          nextSunday(now).Format(isoDate),
		MeetingType:   models.MeetingSacrament,
		Announcements: []models.Announcement{},
		Meetings:      []models.Meeting{},
		SpecialEvents: []models.SpecialEvent{},
		Agenda:        []models.AgendaItem{newSacramentItem()},
		Leadership: models.Leadership{
			Presiding:  defaults.Presiding,
			Conducting: defaults.Conducting,
			Chorister:  defaults.Chorister,
			Organist:   defaults.Organist,
			Bishop:     defaults.Bishop,
		},
		LeadershipRoster: []models.LeadershipRosterEntry{},
		Missionaries:     []models.MissionaryEntry{},
	}
	if defaults.StakeName != "" {
		doc.Leadership.Other = map[string]string{"stake": defaults.StakeName}
	}
	return doc
}

// AppendAnnouncement adds ann unless an announcement with the same title and content exists.
func AppendAnnouncement(doc models.BulletinDocument, ann models.Announcement) (models.BulletinDocument, bool) {
	for _, existing := range doc.Announcements {
		if existing.SameText(ann) {
			return doc, false
		}
	}
	if ann.ID == "" {
		ann.ID = uuid.NewString()
	}
	doc.Announcements = append(append([]models.Announcement{}, doc.Announcements...), ann)
	return doc, true
}

func newSacramentItem() models.AgendaItem {
	return models.AgendaItem{ID: uuid.NewString(), Type: models.AgendaSacrament}
}

func nextSunday(now time.Time) time.Time {
	offset := (7 - int(now.Weekday())) % 7
	return now.AddDate(0, 0, offset)
}

func assignMeetingIDs(items []models.Meeting) []models.Meeting {
	out := make([]models.Meeting, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		out[i] = item
	}
	return out
}

func assignEventIDs(items []models.SpecialEvent) []models.SpecialEvent {
	out := make([]models.SpecialEvent, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		out[i] = item
	}
	return out
}
