package service

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/bulletin-api/internal/models"
)

// fieldBinding maps one document attribute to an auxiliary keyed field.
type fieldBinding struct {
	name   string
	encode func(doc *models.BulletinDocument) (string, error)
	decode func(raw string, doc *models.BulletinDocument) error
}

func stringField(name string, at func(*models.BulletinDocument) *string) fieldBinding {
	return fieldBinding{
		name: name,
		encode: func(doc *models.BulletinDocument) (string, error) {
			return *at(doc), nil
		},
		decode: func(raw string, doc *models.BulletinDocument) error {
			*at(doc) = raw
			return nil
		},
	}
}

func jsonField[T any](name string, at func(*models.BulletinDocument) *T) fieldBinding {
	return fieldBinding{
		name: name,
		encode: func(doc *models.BulletinDocument) (string, error) {
			raw, err := json.Marshal(at(doc))
			if err != nil {
				return "", fmt.Errorf("encode field %s: %w", name, err)
			}
			return string(raw), nil
		},
		decode: func(raw string, doc *models.BulletinDocument) error {
			var value T
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("decode field %s: %w", name, err)
			}
			*at(doc) = value
			return nil
		},
	}
}

// bulletinFields lists every document attribute that is not an indexed column.
var bulletinFields = []fieldBinding{
	stringField("wardName", func(d *models.BulletinDocument) *string { return &d.WardName }),
	stringField("theme", func(d *models.BulletinDocument) *string { return &d.Theme }),
	stringField("leadershipMessage", func(d *models.BulletinDocument) *string { return &d.LeadershipMessage }),
	stringField("backgroundImage", func(d *models.BulletinDocument) *string { return &d.BackgroundImage }),
	jsonField("announcements", func(d *models.BulletinDocument) *[]models.Announcement { return &d.Announcements }),
	jsonField("meetings", func(d *models.BulletinDocument) *[]models.Meeting { return &d.Meetings }),
	jsonField("specialEvents", func(d *models.BulletinDocument) *[]models.SpecialEvent { return &d.SpecialEvents }),
	jsonField("agenda", func(d *models.BulletinDocument) *[]models.AgendaItem { return &d.Agenda }),
	jsonField("prayers", func(d *models.BulletinDocument) *models.Prayers { return &d.Prayers }),
	jsonField("musicProgram", func(d *models.BulletinDocument) *models.MusicProgram { return &d.MusicProgram }),
	jsonField("leadership", func(d *models.BulletinDocument) *models.Leadership { return &d.Leadership }),
	jsonField("leadershipRoster", func(d *models.BulletinDocument) *[]models.LeadershipRosterEntry { return &d.LeadershipRoster }),
	jsonField("missionaries", func(d *models.BulletinDocument) *[]models.MissionaryEntry { return &d.Missionaries }),
	jsonField("imagePosition", func(d *models.BulletinDocument) **models.ImagePosition { return &d.ImagePosition }),
}

// encodeFields renders every auxiliary field of doc for the given slug and owner.
func encodeFields(slug, ownerID string, doc models.BulletinDocument) ([]models.KeyedField, error) {
	fields := make([]models.KeyedField, 0, len(bulletinFields))
	for _, binding := range bulletinFields {
		value, err := binding.encode(&doc)
		if err != nil {
			return nil, err
		}
		fields = append(fields, models.KeyedField{
			Key:     models.BulletinFieldKey(slug, binding.name),
			Value:   value,
			OwnerID: ownerID,
		})
	}
	return fields, nil
}

// decodeFields applies stored fields onto doc. Unknown keys are ignored; the names of
// fields that failed to decode are returned with the first error.
func decodeFields(slug string, stored []models.KeyedField, doc *models.BulletinDocument) ([]string, error) {
	byKey := make(map[string]string, len(stored))
	for _, field := range stored {
		byKey[field.Key] = field.Value
	}
	var failed []string
	var firstErr error
	for _, binding := range bulletinFields {
		raw, ok := byKey[models.BulletinFieldKey(slug, binding.name)]
		if !ok {
			continue
		}
		if err := binding.decode(raw, doc); err != nil {
			failed = append(failed, binding.name)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return failed, firstErr
}
