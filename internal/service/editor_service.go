package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulletin-api/internal/models"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

const offlineWarning = "bulletin could not reach the server and was kept offline; sync it later"

type editorRecords interface {
	GetUser(ctx context.Context, ownerID string) (*models.User, error)
	LoadOwnedDocument(ctx context.Context, ownerID, id string) (*models.StoredBulletin, error)
	PrepareRecord(ctx context.Context, ownerID, existingID string, doc models.BulletinDocument) (*models.BulletinRecord, error)
	SaveDocument(ctx context.Context, record *models.BulletinRecord, doc models.BulletinDocument) error
	SetActiveBulletinID(ctx context.Context, ownerID, bulletinID string) error
}

type editorTemplateReader interface {
	Get(ctx context.Context, ownerID, id string) (*models.Template, error)
}

type sessionRefresher interface {
	RefreshSession(ctx context.Context, claims *models.JWTClaims) (*models.Session, error)
}

type publicCacheInvalidator interface {
	Invalidate(ctx context.Context, profileSlug string) error
}

// EditorServiceConfig tunes the save workflow.
type EditorServiceConfig struct {
	SaveTimeout        time.Duration
	SaveRetries        int
	RetryBaseDelay     time.Duration
	DefaultTerminology string
}

// EditorServiceParams groups constructor dependencies.
type EditorServiceParams struct {
	Drafts    *DraftService
	Records   editorRecords
	Templates editorTemplateReader
	Sessions  sessionRefresher
	Public    publicCacheInvalidator
	Metrics   *MetricsService
	Reporter  *ErrorReporter
	Logger    *zap.Logger
	Config    EditorServiceConfig
}

// EditorService decides which document the editor starts from and moves documents
// between the local draft store and the remote record store.
type EditorService struct {
	drafts    *DraftService
	records   editorRecords
	templates editorTemplateReader
	sessions  sessionRefresher
	public    publicCacheInvalidator
	metrics   *MetricsService
	reporter  *ErrorReporter
	logger    *zap.Logger
	cfg       EditorServiceConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewEditorService constructs an EditorService with sane defaults.
func NewEditorService(params EditorServiceParams) *EditorService {
	cfg := params.Config
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 10 * time.Second
	}
	if cfg.SaveRetries <= 0 {
		cfg.SaveRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.DefaultTerminology == "" {
		cfg.DefaultTerminology = string(models.TerminologyWard)
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reporter := params.Reporter
	if reporter == nil {
		reporter = NewErrorReporter(logger, nil)
	}
	return &EditorService{
		drafts:    params.Drafts,
		records:   params.Records,
		templates: params.Templates,
		sessions:  params.Sessions,
		public:    params.Public,
		metrics:   params.Metrics,
		reporter:  reporter,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Load resolves the starting document by fixed priority: local draft, active template,
// the owner's remote active bulletin, then a blank document seeded with saved defaults.
func (s *EditorService) Load(ctx context.Context, session models.EditorSession) (*models.LoadResult, error) {
	draft, err := s.drafts.LoadDraft(ctx, session.ClientID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_draft", err)
	}
	if draft != nil {
		return &models.LoadResult{
			Document:          draft.Document,
			Source:            models.SourceDraft,
			HasUnsavedChanges: true,
			RemoteID:          draft.RemoteID,
		}, nil
	}

	if result, err := s.loadTemplate(ctx, session); err != nil || result != nil {
		return result, err
	}

	if session.Authenticated() {
		result, err := s.loadRemote(ctx, session)
		if err != nil || result != nil {
			return result, err
		}
	}

	defaults, err := s.drafts.Defaults(ctx, session.ClientID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_defaults", err)
	}
	return &models.LoadResult{
		Document: BlankDocument(defaults, s.now()),
		Source:   models.SourceBlank,
	}, nil
}

func (s *EditorService) loadTemplate(ctx context.Context, session models.EditorSession) (*models.LoadResult, error) {
	templateID, err := s.drafts.ActiveTemplate(ctx, session.ClientID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_active_template", err)
	}
	if templateID == "" || s.templates == nil {
		return nil, nil
	}
	owner, err := s.ownerOf(ctx, session)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "resolve_owner", err)
	}
	if owner == "" {
		s.logger.Debug("active template set without a known owner", zap.String("client_id", session.ClientID))
		return nil, nil
	}

	tpl, err := s.templates.Get(ctx, owner, templateID)
	if errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Info("active template no longer exists", zap.String("template_id", templateID))
		if clearErr := s.drafts.ClearActiveTemplate(ctx, session.ClientID); clearErr != nil {
			s.logger.Warn("failed to clear stale active template", zap.Error(clearErr))
		}
		return nil, nil
	}
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_template", err)
	}
	return &models.LoadResult{
		Document:   NormalizeDocument(tpl.Snapshot),
		Source:     models.SourceTemplate,
		TemplateID: tpl.ID,
	}, nil
}

func (s *EditorService) loadRemote(ctx context.Context, session models.EditorSession) (*models.LoadResult, error) {
	user, err := s.records.GetUser(ctx, session.OwnerID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_user", err)
	}
	if user.ActiveBulletinID == nil || *user.ActiveBulletinID == "" {
		return nil, nil
	}
	stored, err := s.records.LoadOwnedDocument(ctx, session.OwnerID, *user.ActiveBulletinID)
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "load_remote", err)
	}
	if err := s.drafts.ClearDraft(ctx, session.ClientID); err != nil {
		s.logger.Warn("failed to clear draft after remote load", zap.Error(err))
	}
	return &models.LoadResult{
		Document: NormalizeDocument(stored.Document),
		Source:   models.SourceRemote,
		RemoteID: stored.Record.ID,
	}, nil
}

// UpdateDraft normalises doc and mirrors it into the client's draft.
func (s *EditorService) UpdateDraft(ctx context.Context, session models.EditorSession, doc models.BulletinDocument, remoteID string) (*models.DraftRecord, error) {
	draft := models.DraftRecord{
		Document: NormalizeDocument(doc),
		SavedAt:  s.now().UTC(),
		OwnerID:  session.OwnerID,
		RemoteID: remoteID,
	}
	if err := s.drafts.SaveDraft(ctx, session.ClientID, draft); err != nil {
		return nil, s.reporter.Report(ctx, "editor", "update_draft", err)
	}
	return &draft, nil
}

// DiscardDraft drops the client's draft.
func (s *EditorService) DiscardDraft(ctx context.Context, session models.EditorSession) error {
	if err := s.drafts.ClearDraft(ctx, session.ClientID); err != nil {
		return s.reporter.Report(ctx, "editor", "discard_draft", err)
	}
	return nil
}

// Save pushes the document to the remote store. Anonymous callers and callers whose
// session cannot be refreshed get their document stashed as a pending draft. A save that
// times out or exhausts its retries is kept in the offline list and reported as such.
func (s *EditorService) Save(ctx context.Context, session models.EditorSession, req models.SaveRequest) (*models.SaveResult, error) {
	doc := NormalizeDocument(req.Document)
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	pending := models.DraftRecord{Document: doc, OwnerID: session.OwnerID, RemoteID: req.ExistingID}
	if !session.Authenticated() {
		if err := s.drafts.StashPending(ctx, session.ClientID, pending); err != nil {
			return nil, s.reporter.Report(ctx, "editor", "stash_pending", err)
		}
		return nil, s.reporter.Report(ctx, "editor", "save", appErrors.Clone(appErrors.ErrUnauthorized, "sign in to save this bulletin"))
	}
	if err := s.refresh(ctx, session, pending); err != nil {
		return nil, err
	}
	return s.persist(ctx, session, doc, req.ExistingID, nil)
}

func (s *EditorService) refresh(ctx context.Context, session models.EditorSession, pending models.DraftRecord) error {
	if s.sessions == nil {
		return nil
	}
	if _, err := s.sessions.RefreshSession(ctx, session.Claims); err != nil {
		if stashErr := s.drafts.StashPending(ctx, session.ClientID, pending); stashErr != nil {
			s.logger.Error("failed to stash pending draft", zap.Error(stashErr))
		}
		expired := appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
		return s.reporter.Report(ctx, "editor", "refresh_session", expired)
	}
	return nil
}

// ResumePending resubmits the draft stashed before sign-in. It returns nil when nothing
// was pending. A failed resubmission leaves the document in the client's draft.
func (s *EditorService) ResumePending(ctx context.Context, session models.EditorSession) (*models.SaveResult, error) {
	if !session.Authenticated() {
		return nil, nil
	}
	pending, err := s.drafts.TakePending(ctx, session.ClientID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "take_pending", err)
	}
	if pending == nil {
		return nil, nil
	}

	doc := NormalizeDocument(pending.Document)
	result, err := s.resume(ctx, session, doc, pending.RemoteID)
	if err != nil {
		restored := models.DraftRecord{Document: doc, OwnerID: session.OwnerID, RemoteID: pending.RemoteID}
		if saveErr := s.drafts.SaveDraft(ctx, session.ClientID, restored); saveErr != nil {
			s.logger.Error("failed to restore pending draft", zap.Error(saveErr))
		}
		return nil, err
	}
	return result, nil
}

func (s *EditorService) resume(ctx context.Context, session models.EditorSession, doc models.BulletinDocument, remoteID string) (*models.SaveResult, error) {
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}
	return s.persist(ctx, session, doc, remoteID, nil)
}

// SyncOffline retries every offline bulletin of the signed-in owner, one at a time.
func (s *EditorService) SyncOffline(ctx context.Context, session models.EditorSession) (*models.SyncResult, error) {
	if !session.Authenticated() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sign in to sync offline bulletins")
	}
	entries, err := s.drafts.ListOffline(ctx, session.ClientID, session.OwnerID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "list_offline", err)
	}
	if len(entries) > 0 && s.sessions != nil {
		if _, err := s.sessions.RefreshSession(ctx, session.Claims); err != nil {
			expired := appErrors.Wrap(err, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
			return nil, s.reporter.Report(ctx, "editor", "refresh_session", expired)
		}
	}

	synced := make([]models.SaveResult, 0, len(entries))
	for i := range entries {
		entry := entries[i]
		doc := NormalizeDocument(entry.Document)
		if err := ValidateDocument(doc); err != nil {
			s.markOffline(ctx, session.ClientID, entry, err)
			continue
		}
		result, err := s.persist(ctx, session, doc, entry.RemoteID, &entry)
		if err != nil {
			s.markOffline(ctx, session.ClientID, entry, err)
			continue
		}
		if result.Saved {
			synced = append(synced, *result)
		}
	}

	remaining, err := s.drafts.ListOffline(ctx, session.ClientID, session.OwnerID)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "list_offline", err)
	}
	return &models.SyncResult{Synced: synced, Remaining: remaining}, nil
}

func (s *EditorService) markOffline(ctx context.Context, clientID string, entry models.OfflineBulletin, cause error) {
	entry.LastError = cause.Error()
	if _, err := s.drafts.UpdateOffline(ctx, clientID, entry); err != nil {
		s.logger.Warn("failed to update offline bulletin", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}

// ListOffline returns the offline bulletins of the session owner, or of the last known
// owner of this client when nobody is signed in.
func (s *EditorService) ListOffline(ctx context.Context, session models.EditorSession) ([]models.OfflineBulletin, error) {
	owner, err := s.ownerOf(ctx, session)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "resolve_owner", err)
	}
	if owner == "" {
		return []models.OfflineBulletin{}, nil
	}
	entries, err := s.drafts.ListOffline(ctx, session.ClientID, owner)
	if err != nil {
		return nil, s.reporter.Report(ctx, "editor", "list_offline", err)
	}
	return entries, nil
}

type saveOutcome struct {
	record   *models.BulletinRecord
	attempts int
	err      error
}

// persist races the remote write against the save timeout. queued is the offline entry
// being synced, nil for a fresh save.
func (s *EditorService) persist(ctx context.Context, session models.EditorSession, doc models.BulletinDocument, existingID string, queued *models.OfflineBulletin) (*models.SaveResult, error) {
	started := s.now()
	detached := context.WithoutCancel(ctx)
	done := make(chan saveOutcome, 1)
	go func() {
		done <- s.writeWithRetry(detached, session.OwnerID, existingID, doc)
	}()

	timer := time.NewTimer(s.cfg.SaveTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err == nil {
			return s.commit(ctx, session, out, queued, started), nil
		}
		if !appErrors.Retryable(out.err) {
			s.metrics.RecordSave(SaveOutcomeFailed, s.now().Sub(started))
			return nil, s.reporter.Report(ctx, "editor", "save", out.err)
		}
		return s.fallBackOffline(detached, session, doc, existingID, queued, out.err, out.attempts, started)
	case <-timer.C:
		timeout := appErrors.Clone(appErrors.ErrTimeout, "save timed out")
		result, err := s.fallBackOffline(detached, session, doc, existingID, queued, timeout, 0, started)
		if err != nil {
			return nil, err
		}
		go s.awaitLateWrite(detached, session, result.ID, done)
		return result, nil
	}
}

func (s *EditorService) writeWithRetry(ctx context.Context, ownerID, existingID string, doc models.BulletinDocument) saveOutcome {
	var out saveOutcome
	delay := s.cfg.RetryBaseDelay
	for attempt := 1; ; attempt++ {
		out.attempts = attempt
		if out.record == nil {
			out.record, out.err = s.records.PrepareRecord(ctx, ownerID, existingID, doc)
		}
		if out.err == nil {
			out.err = s.records.SaveDocument(ctx, out.record, doc)
		}
		if out.err == nil || !appErrors.Retryable(out.err) || attempt >= s.cfg.SaveRetries {
			return out
		}
		s.logger.Warn("bulletin save attempt failed, retrying",
			zap.String("owner_id", ownerID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(out.err),
		)
		if err := s.sleep(ctx, delay); err != nil {
			out.err = err
			return out
		}
		delay *= 2
	}
}

// commit applies the effects of a successful remote write.
func (s *EditorService) commit(ctx context.Context, session models.EditorSession, out saveOutcome, queued *models.OfflineBulletin, started time.Time) *models.SaveResult {
	result := &models.SaveResult{
		ID:       out.record.ID,
		Slug:     out.record.Slug,
		Saved:    true,
		Attempts: out.attempts,
	}
	if err := s.records.SetActiveBulletinID(ctx, session.OwnerID, out.record.ID); err != nil {
		s.logger.Warn("saved bulletin could not be made active", zap.String("bulletin_id", out.record.ID), zap.Error(err))
		result.Warning = "bulletin saved but could not be published as the active bulletin"
	}
	if queued != nil {
		if _, err := s.drafts.RemoveOffline(ctx, session.ClientID, queued.ID); err != nil {
			s.logger.Warn("failed to drop synced offline bulletin", zap.String("entry_id", queued.ID), zap.Error(err))
		}
	} else if err := s.drafts.ClearDraft(ctx, session.ClientID); err != nil {
		s.logger.Warn("failed to clear draft after save", zap.Error(err))
	}
	s.afterRemoteWrite(ctx, session)
	s.metrics.RecordSave(SaveOutcomeSaved, s.now().Sub(started))
	s.logger.Info("bulletin saved",
		zap.String("bulletin_id", out.record.ID),
		zap.String("owner_id", session.OwnerID),
		zap.Int("attempts", out.attempts),
	)
	return result
}

func (s *EditorService) afterRemoteWrite(ctx context.Context, session models.EditorSession) {
	if err := s.drafts.RememberOwner(ctx, session.ClientID, session.OwnerID); err != nil {
		s.logger.Warn("failed to remember owner", zap.Error(err))
	}
	if s.public != nil && session.Claims != nil && session.Claims.ProfileSlug != "" {
		if err := s.public.Invalidate(ctx, session.Claims.ProfileSlug); err != nil {
			s.logger.Warn("failed to invalidate public bulletin cache", zap.Error(err))
		}
	}
}

// fallBackOffline keeps the document in the client's offline list. The returned result
// carries the offline entry id.
func (s *EditorService) fallBackOffline(ctx context.Context, session models.EditorSession, doc models.BulletinDocument, existingID string, queued *models.OfflineBulletin, cause error, attempts int, started time.Time) (*models.SaveResult, error) {
	var entry models.OfflineBulletin
	if queued != nil {
		entry = *queued
		entry.LastError = cause.Error()
		if _, err := s.drafts.UpdateOffline(ctx, session.ClientID, entry); err != nil {
			return nil, s.reporter.Report(ctx, "editor", "save_offline", err)
		}
	} else {
		stored, err := s.drafts.AppendOffline(ctx, session.ClientID, models.OfflineBulletin{
			Document:  doc,
			OwnerID:   session.OwnerID,
			RemoteID:  existingID,
			LastError: cause.Error(),
		})
		if err != nil {
			return nil, s.reporter.Report(ctx, "editor", "save_offline", err)
		}
		entry = stored
	}
	if err := s.drafts.RememberOwner(ctx, session.ClientID, session.OwnerID); err != nil {
		s.logger.Warn("failed to remember owner", zap.Error(err))
	}

	s.metrics.RecordSave(SaveOutcomeOffline, s.now().Sub(started))
	_ = s.reporter.Report(ctx, "editor", "save", cause)
	return &models.SaveResult{ID: entry.ID, Offline: true, Warning: offlineWarning, Attempts: attempts}, nil
}

// awaitLateWrite handles a remote write that finishes after its save timed out. The
// remote copy wins: the offline entry is dropped and the record becomes active. The
// draft is kept because the user may have edited since, but it is pointed at the
// remote record so the next save updates it instead of creating another.
func (s *EditorService) awaitLateWrite(ctx context.Context, session models.EditorSession, entryID string, done <-chan saveOutcome) {
	out := <-done
	if out.err != nil {
		s.logger.Warn("timed out save did not complete; bulletin stays offline",
			zap.String("entry_id", entryID),
			zap.Error(out.err),
		)
		return
	}

	if _, err := s.drafts.RemoveOffline(ctx, session.ClientID, entryID); err != nil {
		s.logger.Warn("failed to drop offline copy after late write", zap.String("entry_id", entryID), zap.Error(err))
	}
	if err := s.records.SetActiveBulletinID(ctx, session.OwnerID, out.record.ID); err != nil {
		s.logger.Warn("late-written bulletin could not be made active", zap.Error(err))
	}
	if draft, err := s.drafts.LoadDraft(ctx, session.ClientID); err == nil && draft != nil && draft.RemoteID == "" {
		draft.RemoteID = out.record.ID
		if err := s.drafts.SaveDraft(ctx, session.ClientID, *draft); err != nil {
			s.logger.Warn("failed to link draft to late-written bulletin", zap.Error(err))
		}
	}
	s.afterRemoteWrite(ctx, session)
	s.metrics.RecordSave(SaveOutcomeLate, 0)
	s.logger.Info("timed out save completed late",
		zap.String("bulletin_id", out.record.ID),
		zap.String("entry_id", entryID),
	)
}

// ConsolidateAnnouncements merges the working document's announcements by audience and
// stores the result as the client's draft.
func (s *EditorService) ConsolidateAnnouncements(ctx context.Context, session models.EditorSession) (*models.DraftRecord, error) {
	working, err := s.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	doc := working.Document
	doc.Announcements = ConsolidateAnnouncements(doc.Announcements)
	return s.UpdateDraft(ctx, session, doc, working.RemoteID)
}

// AppendAnnouncement adds ann to the working document unless an announcement with the same
// title and content is already present. It reports whether the document changed.
func (s *EditorService) AppendAnnouncement(ctx context.Context, session models.EditorSession, ann models.Announcement) (bool, error) {
	working, err := s.Load(ctx, session)
	if err != nil {
		return false, err
	}
	doc, appended := AppendAnnouncement(working.Document, ann)
	if !appended {
		return false, nil
	}
	if _, err := s.UpdateDraft(ctx, session, doc, working.RemoteID); err != nil {
		return false, err
	}
	return true, nil
}

// Defaults returns the client's saved field defaults.
func (s *EditorService) Defaults(ctx context.Context, session models.EditorSession) (models.FieldDefaults, error) {
	defaults, err := s.drafts.Defaults(ctx, session.ClientID)
	if err != nil {
		return models.FieldDefaults{}, s.reporter.Report(ctx, "editor", "load_defaults", err)
	}
	return defaults, nil
}

// SaveDefaults merges defaults into the client's saved field defaults.
func (s *EditorService) SaveDefaults(ctx context.Context, session models.EditorSession, defaults models.FieldDefaults) (models.FieldDefaults, error) {
	merged, err := s.drafts.SaveDefaults(ctx, session.ClientID, defaults)
	if err != nil {
		return models.FieldDefaults{}, s.reporter.Report(ctx, "editor", "save_defaults", err)
	}
	return merged, nil
}

// Terminology returns the unit wording for the client: its stored preference, else the
// signed-in user's account preference, else the configured default.
func (s *EditorService) Terminology(ctx context.Context, session models.EditorSession) (models.Terminology, error) {
	fallback := s.cfg.DefaultTerminology
	if session.Authenticated() {
		user, err := s.records.GetUser(ctx, session.OwnerID)
		switch {
		case err != nil:
			s.logger.Warn("account terminology unavailable, using default",
				zap.String("owner_id", session.OwnerID),
				zap.Error(err),
			)
		case user.Terminology != "":
			fallback = user.Terminology
		}
	}
	term, err := s.drafts.Terminology(ctx, session.ClientID, fallback)
	if err != nil {
		return models.Terminology{}, s.reporter.Report(ctx, "editor", "load_terminology", err)
	}
	return term, nil
}

// SetTerminology stores the client's unit wording preference.
func (s *EditorService) SetTerminology(ctx context.Context, session models.EditorSession, key models.TerminologyKey) (models.Terminology, error) {
	if key != models.TerminologyWard && key != models.TerminologyBranch {
		return models.Terminology{}, appErrors.Clone(appErrors.ErrValidation, "terminology must be ward or branch")
	}
	if err := s.drafts.SetTerminology(ctx, session.ClientID, key); err != nil {
		return models.Terminology{}, s.reporter.Report(ctx, "editor", "save_terminology", err)
	}
	return models.LookupTerminology(string(key)), nil
}

func (s *EditorService) ownerOf(ctx context.Context, session models.EditorSession) (string, error) {
	if session.OwnerID != "" {
		return session.OwnerID, nil
	}
	return s.drafts.LastOwner(ctx, session.ClientID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
