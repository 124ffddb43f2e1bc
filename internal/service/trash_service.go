package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type trashApplicationStore interface {
	LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.Application, error)
	HasSubmitted(ctx context.Context, exec sqlx.ExtContext, userID, excludeID int64) (bool, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, app *models.Application) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error)
	ReviewColumns(ctx context.Context) (map[models.DocumentKey]models.ReviewColumns, error)
	DocumentReviews(ctx context.Context, exec sqlx.ExtContext, id int64, cols map[models.DocumentKey]models.ReviewColumns) (map[models.DocumentKey]models.DocumentReview, error)
	UpdateDocumentReview(ctx context.Context, exec sqlx.ExtContext, id int64, key models.DocumentKey, cols models.ReviewColumns, review models.DocumentReview) (int64, error)
}

type trashLedger interface {
	ListKeys(ctx context.Context, exec sqlx.ExtContext, applicationID int64) ([]models.DocumentKey, error)
	VerifyMany(ctx context.Context, exec sqlx.ExtContext, applicationID int64, keys []models.DocumentKey, verifiedBy *int64) error
	DeleteAll(ctx context.Context, exec sqlx.ExtContext, applicationID int64) error
}

type trashStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, item *models.TrashedApplication) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.TrashedApplication, error)
	List(ctx context.Context) ([]models.TrashedApplication, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type purgeObserver interface {
	ObserveTrashPurged(n int64)
}

// TrashConfig governs retention of trashed applications.
type TrashConfig struct {
	Retention     time.Duration
	SweepInterval time.Duration
	Metrics       purgeObserver
}

// TrashService moves applications to and from the recovery area.
type TrashService struct {
	tx       txProvider
	apps     trashApplicationStore
	ledger   trashLedger
	trash    trashStore
	activity activityRecorder
	cache    cacheInvalidator
	logger   *zap.Logger
	cfg      TrashConfig
	now      func() time.Time
}

// NewTrashService constructs the service.
func NewTrashService(tx txProvider, apps trashApplicationStore, ledger trashLedger, trash trashStore, activity activityRecorder, cache cacheInvalidator, logger *zap.Logger, cfg TrashConfig) *TrashService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 24 * time.Hour
	}
	return &TrashService{tx: tx, apps: apps, ledger: ledger, trash: trash, activity: activity, cache: cache, logger: logger, cfg: cfg, now: time.Now}
}

// Trash snapshots an application and removes it with its ledger rows.
func (s *TrashService) Trash(ctx context.Context, adminID, id int64) (item *models.TrashedApplication, err error) {
	cols, colErr := s.apps.ReviewColumns(ctx)
	if colErr != nil {
		s.logger.Warn("failed to inspect document status columns", zap.Error(colErr))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := s.apps.LockByID(ctx, tx, id)
	if err != nil {
		err = notFoundOrInternal(err, "application not found", "failed to load application")
		return nil, err
	}
	keys, err := s.ledger.ListKeys(ctx, tx, id)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verified files")
		return nil, err
	}
	snapshot := models.TrashSnapshot{Application: *app, VerifiedFiles: keys}
	if len(cols) > 0 {
		reviews, reviewErr := s.apps.DocumentReviews(ctx, tx, id, cols)
		if reviewErr != nil {
			err = appErrors.Wrap(reviewErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document reviews")
			return nil, err
		}
		snapshot.DocumentReviews = reviews
	}
	data, marshalErr := json.Marshal(snapshot)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode trash snapshot")
		return nil, err
	}

	item = &models.TrashedApplication{
		OriginalID:       app.ID,
		UserID:           app.UserID,
		ApplicantDetails: app.ApplicantDetails,
		Documents:        app.Documents,
		Status:           app.Status,
		CreatedAt:        app.CreatedAt,
		Data:             data,
	}
	if err = s.trash.Create(ctx, tx, item); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move application to trash")
		return nil, err
	}
	if err = s.ledger.DeleteAll(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear verified files")
		return nil, err
	}
	if _, err = s.apps.Delete(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete application")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit trash")
		return nil, err
	}

	email := "no-email"
	if app.Email != nil {
		email = *app.Email
	}
	s.activity.Log(ctx, adminID, "trash_application", fmt.Sprintf("Moved application %d to trash (%s)", id, email))
	s.invalidate(ctx)
	return item, nil
}

// Restore reinstates a trashed application, reusing its original id when
// still free.
func (s *TrashService) Restore(ctx context.Context, adminID, trashID int64) (app *models.Application, err error) {
	cols, colErr := s.apps.ReviewColumns(ctx)
	if colErr != nil {
		s.logger.Warn("failed to inspect document status columns", zap.Error(colErr))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	item, err := s.trash.FindByID(ctx, tx, trashID)
	if err != nil {
		err = notFoundOrInternal(err, "trashed item not found", "failed to load trashed item")
		return nil, err
	}

	restored := item.Restore()
	if restored.Status != models.StatusDraft && restored.UserID != nil {
		submitted, checkErr := s.apps.HasSubmitted(ctx, tx, *restored.UserID, 0)
		if checkErr != nil {
			err = appErrors.Wrap(checkErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing application")
			return nil, err
		}
		if submitted {
			err = appErrors.Clone(appErrors.ErrConflict, "the applicant already has a submitted application")
			return nil, err
		}
	}

	if item.OriginalID > 0 {
		taken, existsErr := s.apps.Exists(ctx, tx, item.OriginalID)
		if existsErr != nil {
			err = appErrors.Wrap(existsErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check application id")
			return nil, err
		}
		if !taken {
			restored.ID = item.OriginalID
		}
	}
	if err = s.apps.Create(ctx, tx, &restored); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = appErrors.Clone(appErrors.ErrConflict, "restoring would duplicate an existing application")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore application")
		return nil, err
	}

	snapshot := decodeSnapshot(item.Data, s.logger)
	if keys := validKeys(snapshot.VerifiedFiles); len(keys) > 0 {
		if err = s.ledger.VerifyMany(ctx, tx, restored.ID, keys, nil); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore verified files")
			return nil, err
		}
	}
	for key, review := range snapshot.DocumentReviews {
		rc, ok := cols[key]
		if !ok {
			continue
		}
		if _, err = s.apps.UpdateDocumentReview(ctx, tx, restored.ID, key, rc, review); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore document reviews")
			return nil, err
		}
	}

	if _, err = s.trash.Delete(ctx, tx, trashID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove trash entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit restore")
		return nil, err
	}

	s.activity.Log(ctx, adminID, "restore_application", fmt.Sprintf("Restored trashed application %d (orig:%d)", trashID, item.OriginalID))
	s.invalidate(ctx)
	return &restored, nil
}

// List returns trash entries with their purge deadline.
func (s *TrashService) List(ctx context.Context) ([]models.TrashView, error) {
	items, err := s.trash.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trash")
	}
	views := make([]models.TrashView, len(items))
	for i := range items {
		views[i] = models.TrashView{TrashedApplication: items[i], ExpiresAt: items[i].ExpiresAt(s.cfg.Retention)}
	}
	return views, nil
}

// Delete permanently removes a trash entry.
func (s *TrashService) Delete(ctx context.Context, adminID, trashID int64) error {
	affected, err := s.trash.Delete(ctx, nil, trashID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete trash entry")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "trashed item not found")
	}
	s.activity.Log(ctx, adminID, "permanently_delete_application", fmt.Sprintf("Permanently deleted trashed application %d", trashID))
	return nil
}

// PurgeExpired removes entries older than the retention window.
func (s *TrashService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.Retention)
	purged, err := s.trash.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge trash")
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveTrashPurged(purged)
	}
	if purged > 0 {
		s.logger.Info("purged expired trash", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

// StartSweep purges once immediately and then on every interval until ctx
// is cancelled.
func (s *TrashService) StartSweep(ctx context.Context) {
	if _, err := s.PurgeExpired(ctx); err != nil {
		s.logger.Warn("initial trash purge failed", zap.Error(err))
	}
	ticker := time.NewTicker(s.cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PurgeExpired(ctx); err != nil {
					s.logger.Warn("trash purge failed", zap.Error(err))
				}
			}
		}
	}()
}

func (s *TrashService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func decodeSnapshot(data []byte, logger *zap.Logger) models.TrashSnapshot {
	var snapshot models.TrashSnapshot
	if len(data) == 0 {
		return snapshot
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		logger.Warn("ignoring unreadable trash snapshot", zap.Error(err))
	}
	return snapshot
}

func validKeys(keys []models.DocumentKey) []models.DocumentKey {
	out := make([]models.DocumentKey, 0, len(keys))
	for _, key := range keys {
		if key.Valid() {
			out = append(out, key)
		}
	}
	return out
}
