package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/admissions-api/internal/models"
)

// ApplicationPatch lists the fields to overwrite. Nil fields and missing
// document keys are left untouched.
type ApplicationPatch struct {
	Details   models.ApplicantDetails
	Documents map[models.DocumentKey]string
	Status    *models.ApplicationStatus
}

// Empty reports whether the patch would change nothing.
func (p ApplicationPatch) Empty() bool {
	d := p.Details
	return p.Status == nil && len(p.Documents) == 0 &&
		d.ProgramName == nil && d.FullName == nil && d.Email == nil && d.Phone == nil &&
		d.MaritalStatus == nil && d.IsBusinessOwner == nil && d.BusinessName == nil
}

// ApplicationRepository persists rows of the applications table.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FindByID returns an application by id.
func (r *ApplicationRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	var app models.Application
	if err := sqlx.GetContext(ctx, execOrDB(r.db, exec), &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// LockByID loads and row-locks an application inside a transaction.
func (r *ApplicationRepository) LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	var app models.Application
	if err := sqlx.GetContext(ctx, tx, &app, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock application: %w", err)
	}
	return &app, nil
}

// FindOwnedDraft returns the draft id owned by userID.
func (r *ApplicationRepository) FindOwnedDraft(ctx context.Context, id, userID int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 AND user_id = $2 AND status = 'Draft' LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find owned draft: %w", err)
	}
	return &app, nil
}

// FindDraftByProgram returns the user's draft for a programme.
func (r *ApplicationRepository) FindDraftByProgram(ctx context.Context, userID int64, program string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND program_name = $2 AND status = 'Draft' LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, userID, program); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find draft by program: %w", err)
	}
	return &app, nil
}

// HasSubmitted reports whether userID owns a non-draft application other
// than excludeID.
func (r *ApplicationRepository) HasSubmitted(ctx context.Context, exec sqlx.ExtContext, userID, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE user_id = $1 AND status <> 'Draft' AND id <> $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, execOrDB(r.db, exec), &exists, query, userID, excludeID); err != nil {
		return false, fmt.Errorf("check submitted application: %w", err)
	}
	return exists, nil
}

// Exists reports whether id is currently taken.
func (r *ApplicationRepository) Exists(ctx context.Context, exec sqlx.ExtContext, id int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, execOrDB(r.db, exec), &exists, query, id); err != nil {
		return false, fmt.Errorf("check application id: %w", err)
	}
	return exists, nil
}

// ListDrafts returns the user's drafts newest first.
func (r *ApplicationRepository) ListDrafts(ctx context.Context, userID int64) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND status = 'Draft' ORDER BY created_at DESC`
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, userID); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return apps, nil
}

// ListSubmittedByUser returns the user's non-draft applications.
func (r *ApplicationRepository) ListSubmittedByUser(ctx context.Context, userID int64) ([]models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 AND status <> 'Draft' ORDER BY created_at DESC`
	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, userID); err != nil {
		return nil, fmt.Errorf("list user applications: %w", err)
	}
	return apps, nil
}

// List returns applications matching filter newest first.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	} else if !filter.IncludeDrafts {
		conditions = append(conditions, "status <> 'Draft'")
	}
	if program := strings.TrimSpace(filter.ProgramName); program != "" {
		args = append(args, program)
		conditions = append(conditions, fmt.Sprintf("program_name = $%d", len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	apps := make([]models.Application, 0)
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Create inserts app and fills its id and created_at. A non-zero app.ID is
// inserted verbatim, as is a non-zero CreatedAt.
func (r *ApplicationRepository) Create(ctx context.Context, exec sqlx.ExtContext, app *models.Application) error {
	if app.Status == "" {
		app.Status = models.StatusPending
	}
	cols := recordColumns + ", status"
	args := append(recordArgs(app.UserID, app.ApplicantDetails, app.Documents), app.Status)
	if !app.CreatedAt.IsZero() {
		cols += ", created_at"
		args = append(args, app.CreatedAt)
	}
	if app.ID > 0 {
		cols = "id, " + cols
		args = append([]interface{}{app.ID}, args...)
	}

	query := fmt.Sprintf(`INSERT INTO applications (%s) VALUES (%s) RETURNING id, created_at`, cols, placeholders(1, len(args)))
	row := execOrDB(r.db, exec).QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&app.ID, &app.CreatedAt); err != nil {
		return classify("create application", err)
	}
	return nil
}

// Update applies patch to id and returns the number of rows changed.
func (r *ApplicationRepository) Update(ctx context.Context, exec sqlx.ExtContext, id int64, patch ApplicationPatch) (int64, error) {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	add := func(col string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	d := patch.Details
	if d.ProgramName != nil {
		add("program_name", *d.ProgramName)
	}
	if d.FullName != nil {
		add("full_name", *d.FullName)
	}
	if d.Email != nil {
		add("email", *d.Email)
	}
	if d.Phone != nil {
		add("phone", *d.Phone)
	}
	if d.MaritalStatus != nil {
		add("marital_status", *d.MaritalStatus)
	}
	if d.IsBusinessOwner != nil {
		add("is_business_owner", *d.IsBusinessOwner)
	}
	if d.BusinessName != nil {
		add("business_name", *d.BusinessName)
	}
	for _, key := range models.DocumentKeys {
		if path, ok := patch.Documents[key]; ok && path != "" {
			add(string(key), path)
		}
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}

	if len(set) == 0 {
		return 0, nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE applications SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := execOrDB(r.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("update application", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update application rows: %w", err)
	}
	return affected, nil
}

// Delete removes id and returns the number of rows removed.
func (r *ApplicationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error) {
	res, err := execOrDB(r.db, exec).ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete application: %w", err)
	}
	return res.RowsAffected()
}

// DeleteOwnedDraft removes a draft owned by userID.
func (r *ApplicationRepository) DeleteOwnedDraft(ctx context.Context, id, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2 AND status = 'Draft'`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete draft: %w", err)
	}
	return res.RowsAffected()
}

// ReviewColumns reports which optional per-document review columns exist.
func (r *ApplicationRepository) ReviewColumns(ctx context.Context) (map[models.DocumentKey]models.ReviewColumns, error) {
	names := make([]string, 0, len(models.DocumentKeys)*2)
	for _, key := range models.DocumentKeys {
		names = append(names, key.StatusColumn(), key.RemarkColumn())
	}

	const query = `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = 'applications' AND column_name = ANY($1)`
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("inspect review columns: %w", err)
	}

	present := make(map[string]bool, len(found))
	for _, name := range found {
		present[name] = true
	}
	cols := make(map[models.DocumentKey]models.ReviewColumns)
	for _, key := range models.DocumentKeys {
		rc := models.ReviewColumns{Status: present[key.StatusColumn()], Remark: present[key.RemarkColumn()]}
		if rc.Status || rc.Remark {
			cols[key] = rc
		}
	}
	return cols, nil
}

// UpdateDocumentReview writes the review columns for key. Callers must have
// confirmed the columns exist via ReviewColumns.
func (r *ApplicationRepository) UpdateDocumentReview(ctx context.Context, exec sqlx.ExtContext, id int64, key models.DocumentKey, cols models.ReviewColumns, review models.DocumentReview) (int64, error) {
	if !key.Valid() {
		return 0, fmt.Errorf("update document review: unknown document %q", key)
	}
	set := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if cols.Status && review.Status != nil {
		args = append(args, *review.Status)
		set = append(set, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(key.StatusColumn()), len(args)))
	}
	if cols.Remark && review.Remark != nil {
		args = append(args, *review.Remark)
		set = append(set, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(key.RemarkColumn()), len(args)))
	}
	if len(set) == 0 {
		return 0, nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE applications SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := execOrDB(r.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update document review: %w", err)
	}
	return res.RowsAffected()
}

// DocumentReviews loads the existing review columns of id.
func (r *ApplicationRepository) DocumentReviews(ctx context.Context, exec sqlx.ExtContext, id int64, cols map[models.DocumentKey]models.ReviewColumns) (map[models.DocumentKey]models.DocumentReview, error) {
	type target struct {
		key    models.DocumentKey
		remark bool
	}
	selects := make([]string, 0, len(cols)*2)
	targets := make([]target, 0, len(cols)*2)
	for _, key := range models.DocumentKeys {
		rc, ok := cols[key]
		if !ok {
			continue
		}
		if rc.Status {
			selects = append(selects, pq.QuoteIdentifier(key.StatusColumn()))
			targets = append(targets, target{key: key})
		}
		if rc.Remark {
			selects = append(selects, pq.QuoteIdentifier(key.RemarkColumn()))
			targets = append(targets, target{key: key, remark: true})
		}
	}
	reviews := make(map[models.DocumentKey]models.DocumentReview)
	if len(selects) == 0 {
		return reviews, nil
	}

	values := make([]sql.NullString, len(selects))
	dest := make([]interface{}, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", strings.Join(selects, ", "))
	if err := execOrDB(r.db, exec).QueryRowxContext(ctx, query, id).Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load document reviews: %w", err)
	}

	for i, t := range targets {
		review := reviews[t.key]
		if values[i].Valid {
			v := values[i].String
			if t.remark {
				review.Remark = &v
			} else {
				review.Status = &v
			}
		}
		reviews[t.key] = review
	}
	return reviews, nil
}
