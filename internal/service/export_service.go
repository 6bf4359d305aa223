package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/export"
	"github.com/noah-isme/bulletin-api/pkg/htmlsanitize"
)

const exportPageSize = 200

type exportRecords interface {
	GetUser(ctx context.Context, ownerID string) (*models.User, error)
	LoadOwnedDocument(ctx context.Context, ownerID, id string) (*models.StoredBulletin, error)
}

type submissionLister interface {
	List(ctx context.Context, ownerID string, req SubmissionListRequest) ([]models.Submission, *models.Pagination, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(program export.Program) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders printable programs and tabular exports.
type ExportService struct {
	records     exportRecords
	submissions submissionLister
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(records exportRecords, submissions submissionLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		records:     records,
		submissions: submissions,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		now:         time.Now,
	}
}

// BulletinPDF renders one of the owner's bulletins as a printable program.
func (s *ExportService) BulletinPDF(ctx context.Context, ownerID, bulletinID string) (*ExportFile, error) {
	stored, err := s.records.LoadOwnedDocument(ctx, ownerID, bulletinID)
	if err != nil {
		return nil, err
	}
	terms := models.LookupTerminology("")
	if user, err := s.records.GetUser(ctx, ownerID); err == nil {
		terms = models.LookupTerminology(user.Terminology)
	} else {
		s.logger.Debug("using default terminology for export", zap.Error(err))
	}

	payload, err := s.pdf.Render(BuildProgram(stored.Document, terms))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render bulletin")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("bulletin_%s.pdf", sanitizeFilename(stored.Record.Slug)),
		ContentType: "application/pdf",
		Data:        payload,
	}, nil
}

// SubmissionsCSV exports every submission of the owner matching the filter.
func (s *ExportService) SubmissionsCSV(ctx context.Context, ownerID string, req SubmissionListRequest) (*ExportFile, error) {
	req.Page = 1
	req.PageSize = exportPageSize
	var rows []models.Submission
	for {
		page, pagination, err := s.submissions.List(ctx, ownerID, req)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) < req.PageSize || pagination == nil || len(rows) >= pagination.TotalCount {
			break
		}
		req.Page++
	}

	table := export.Table{Columns: []string{"Submitted At", "Status", "Audience", "Title", "Content", "Submitter", "Email", "Reviewer Notes"}}
	for _, row := range rows {
		notes := ""
		if row.ReviewerNotes != nil {
			notes = *row.ReviewerNotes
		}
		table.AddRow(
			row.CreatedAt.UTC().Format(time.RFC3339),
			string(row.Status),
			string(row.Audience),
			row.Title,
			plainText(row.Content),
			row.SubmitterName,
			row.SubmitterEmail,
			notes,
		)
	}
	payload, err := s.csv.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render submissions")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("submissions_%s.csv", s.now().UTC().Format("20060102_150405")),
		ContentType: "text/csv",
		Data:        payload,
	}, nil
}

// BuildProgram lays a bulletin out as printable sections using the unit's wording.
func BuildProgram(doc models.BulletinDocument, terms models.Terminology) export.Program {
	title := strings.TrimSpace(doc.WardName)
	if title == "" {
		title = terms.Unit + " Bulletin"
	}
	program := export.Program{
		Title:    title,
		Subtitle: programSubtitle(doc),
		Theme:    doc.Theme,
	}

	leadership := export.Section{Heading: "Leadership"}
	leadership.Lines = appendLine(leadership.Lines, "Presiding", doc.Leadership.Presiding)
	leadership.Lines = appendLine(leadership.Lines, "Conducting", doc.Leadership.Conducting)
	leadership.Lines = appendLine(leadership.Lines, terms.Leader, doc.Leadership.Bishop)
	leadership.Lines = appendLine(leadership.Lines, "Chorister", doc.Leadership.Chorister)
	leadership.Lines = appendLine(leadership.Lines, "Organist", doc.Leadership.Organist)
	roles := make([]string, 0, len(doc.Leadership.Other))
	for role := range doc.Leadership.Other {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		leadership.Lines = appendLine(leadership.Lines, titleCase(role), doc.Leadership.Other[role])
	}

	agenda := export.Section{Heading: "Program"}
	agenda.Lines = appendLine(agenda.Lines, "Opening Hymn", hymnLabel(doc.MusicProgram.Opening))
	agenda.Lines = appendLine(agenda.Lines, "Invocation", firstNonEmpty(doc.Prayers.Invocation, doc.Prayers.Opening))
	for _, item := range doc.Agenda {
		switch item.Type {
		case models.AgendaSacrament:
			agenda.Lines = appendLine(agenda.Lines, "Sacrament Hymn", hymnLabel(doc.MusicProgram.Sacrament))
			agenda.Lines = append(agenda.Lines, export.Line{Label: "Administration of the Sacrament"})
		case models.AgendaSpeaker:
			agenda.Lines = appendLine(agenda.Lines, firstNonEmpty(item.SpeakerRole, "Speaker"), joinNonEmpty(" - ", item.Name, item.Topic))
		case models.AgendaMusical:
			agenda.Lines = appendLine(agenda.Lines, firstNonEmpty(item.Title, "Musical Number"), joinNonEmpty(" - ", item.HymnNumber, item.Performers))
		case models.AgendaTestimony:
			agenda.Lines = append(agenda.Lines, export.Line{Label: "Bearing of Testimonies", Value: item.Note})
		}
	}
	agenda.Lines = appendLine(agenda.Lines, "Closing Hymn", hymnLabel(doc.MusicProgram.Closing))
	agenda.Lines = appendLine(agenda.Lines, "Benediction", firstNonEmpty(doc.Prayers.Benediction, doc.Prayers.Closing))

	announcements := export.Section{Heading: "Announcements"}
	for _, ann := range doc.Announcements {
		text := plainText(ann.Content)
		if ann.Title != "" {
			text = joinNonEmpty(": ", ann.Title, text)
		}
		if text != "" {
			announcements.Paragraphs = append(announcements.Paragraphs, text)
		}
	}

	meetings := export.Section{Heading: "Meetings"}
	for _, m := range doc.Meetings {
		meetings.Lines = appendLine(meetings.Lines, m.Title, joinNonEmpty(" ", m.Day, m.Time, m.Location))
	}

	events := export.Section{Heading: "Special Events"}
	for _, e := range doc.SpecialEvents {
		events.Lines = appendLine(events.Lines, e.Title, joinNonEmpty(" ", e.Date, e.Time, e.Location))
		if desc := plainText(e.Description); desc != "" {
			events.Paragraphs = append(events.Paragraphs, desc)
		}
	}

	message := export.Section{Heading: terms.Leader + "'s Message"}
	if text := plainText(doc.LeadershipMessage); text != "" {
		message.Paragraphs = []string{text}
	}

	roster := export.Section{Heading: terms.Unit + " Leadership"}
	for _, entry := range doc.LeadershipRoster {
		roster.Lines = appendLine(roster.Lines, entry.Title, joinNonEmpty(" ", entry.Name, entry.Phone))
	}

	missionaries := export.Section{Heading: "Missionaries"}
	for _, entry := range doc.Missionaries {
		missionaries.Lines = appendLine(missionaries.Lines, entry.Name, entry.Mission)
	}

	program.Sections = []export.Section{leadership, agenda, message, announcements, meetings, events, roster, missionaries}
	return program
}

func programSubtitle(doc models.BulletinDocument) string {
	date := doc.Date
	if parsed, err := time.Parse(isoDate, doc.Date); err == nil {
		date = parsed.Format("Monday, January 2, 2006")
	}
	label := titleCase(strings.ReplaceAll(string(doc.MeetingType), "_", " "))
	return joinNonEmpty(" - ", date, label)
}

func hymnLabel(h models.Hymn) string {
	if h.Number == "" {
		return h.Title
	}
	return joinNonEmpty(" ", "#"+h.Number, h.Title)
}

func appendLine(lines []export.Line, label, value string) []export.Line {
	if strings.TrimSpace(value) == "" {
		return lines
	}
	return append(lines, export.Line{Label: label, Value: value})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

var blockBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</h4>", ": ", "</li>", "\n")

func plainText(fragment string) string {
	return html.UnescapeString(htmlsanitize.Text(blockBreaks.Replace(fragment)))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
