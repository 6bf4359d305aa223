package models

import "time"

// MeetingType is the kind of meeting a bulletin program describes.
type MeetingType string

const (
	MeetingSacrament     MeetingType = "sacrament"
	MeetingFastTestimony MeetingType = "fast_testimony"
	MeetingStakeConf     MeetingType = "stake_conference"
	MeetingWardConf      MeetingType = "ward_conference"
	MeetingSpecial       MeetingType = "special"
)

// AgendaItemType tags the variant carried by an AgendaItem.
type AgendaItemType string

const (
	AgendaSpeaker   AgendaItemType = "speaker"
	AgendaMusical   AgendaItemType = "musical"
	AgendaTestimony AgendaItemType = "testimony"
	AgendaSacrament AgendaItemType = "sacrament"
)

// AgendaItem is one program entry. Only the fields relevant to Type are populated.
type AgendaItem struct {
	ID          string         `json:"id"`
	Type        AgendaItemType `json:"type"`
	Name        string         `json:"name,omitempty"`
	Topic       string         `json:"topic,omitempty"`
	SpeakerRole string         `json:"speaker_role,omitempty"`
	Title       string         `json:"title,omitempty"`
	Performers  string         `json:"performers,omitempty"`
	HymnNumber  string         `json:"hymn_number,omitempty"`
	Note        string         `json:"note,omitempty"`
}

// Meeting is a recurring or one-off meeting listed on the bulletin.
type Meeting struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// SpecialEvent is a dated event promoted on the bulletin.
type SpecialEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Prayers holds the named prayer assignments.
type Prayers struct {
	Opening     string `json:"opening"`
	Closing     string `json:"closing"`
	Invocation  string `json:"invocation"`
	Benediction string `json:"benediction"`
}

// Hymn is one slot of the music program.
type Hymn struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Type   string `json:"type"`
}

// MusicProgram holds the three hymn slots of a sacrament meeting.
type MusicProgram struct {
	Opening   Hymn `json:"opening"`
	Sacrament Hymn `json:"sacrament"`
	Closing   Hymn `json:"closing"`
}

// Leadership maps presiding and supporting roles to names.
type Leadership struct {
	Presiding  string            `json:"presiding"`
	Conducting string            `json:"conducting"`
	Chorister  string            `json:"chorister"`
	Organist   string            `json:"organist"`
	Bishop     string            `json:"bishop,omitempty"`
	Other      map[string]string `json:"other,omitempty"`
}

// LeadershipRosterEntry lists a calling and contact on the back page.
type LeadershipRosterEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// MissionaryEntry lists a missionary serving from or in the unit.
type MissionaryEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mission string `json:"mission,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// ImagePosition is the focal point of the background image in percentages.
type ImagePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BulletinDocument is the aggregate edited by a user.
type BulletinDocument struct {
	WardName          string                  `json:"ward_name"`
	Date              string                  `json:"date"`
	MeetingType       MeetingType             `json:"meeting_type"`
	Theme             string                  `json:"theme"`
	LeadershipMessage string                  `json:"leadership_message"`
	Announcements     []Announcement          `json:"announcements"`
	Meetings          []Meeting               `json:"meetings"`
	SpecialEvents     []SpecialEvent          `json:"special_events"`
	Agenda            []AgendaItem            `json:"agenda"`
	Prayers           Prayers                 `json:"prayers"`
	MusicProgram      MusicProgram            `json:"music_program"`
	Leadership        Leadership              `json:"leadership"`
	LeadershipRoster  []LeadershipRosterEntry `json:"leadership_roster"`
	Missionaries      []MissionaryEntry       `json:"missionaries"`
	BackgroundImage   string                  `json:"background_image,omitempty"`
	ImagePosition     *ImagePosition          `json:"image_position,omitempty"`
}

// BulletinRecord is the indexed row persisted for a saved bulletin. Everything else
// lives in keyed auxiliary fields.
type BulletinRecord struct {
	ID          string      `db:"id" json:"id"`
	Slug        string      `db:"slug" json:"slug"`
	Date        string      `db:"meeting_date" json:"date"`
	MeetingType MeetingType `db:"meeting_type" json:"meeting_type"`
	OwnerID     string      `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// StoredBulletin pairs a record with its reassembled document.
type StoredBulletin struct {
	Record   BulletinRecord   `json:"record"`
	Document BulletinDocument `json:"document"`
}

// PublicBulletin is the visitor-facing projection of a stored bulletin.
type PublicBulletin struct {
	ID          string           `json:"id"`
	Slug        string           `json:"slug"`
	Date        string           `json:"date"`
	MeetingType MeetingType      `json:"meeting_type"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Document    BulletinDocument `json:"document"`
}

// Public strips owner details from a stored bulletin.
func (b StoredBulletin) Public() PublicBulletin {
	return PublicBulletin{
		ID:          b.Record.ID,
		Slug:        b.Record.Slug,
		Date:        b.Record.Date,
		MeetingType: b.Record.MeetingType,
		UpdatedAt:   b.Record.UpdatedAt,
		Document:    b.Document,
	}
}
