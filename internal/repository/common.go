package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/admissions-api/internal/models"
)

// ErrDuplicate marks a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

const uniqueViolation = "23505"

func execOrDB(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

// classify maps driver errors onto repository sentinels.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	applicantColumnList = []string{"program_name", "full_name", "email", "phone", "marital_status", "is_business_owner", "business_name"}
	documentColumnList  = documentColumnNames()

	recordColumns      = strings.Join(append(append([]string{"user_id"}, applicantColumnList...), documentColumnList...), ", ")
	applicationColumns = "id, " + recordColumns + ", status, created_at"
)

func documentColumnNames() []string {
	cols := make([]string, len(models.DocumentKeys))
	for i, key := range models.DocumentKeys {
		cols[i] = string(key)
	}
	return cols
}

// recordArgs flattens the shared columns in recordColumns order.
func recordArgs(userID *int64, d models.ApplicantDetails, docs models.Documents) []interface{} {
	args := []interface{}{userID, d.ProgramName, d.FullName, d.Email, d.Phone, d.MaritalStatus, d.IsBusinessOwner, d.BusinessName}
	for _, key := range models.DocumentKeys {
		if path := docs.Get(key); path != "" {
			args = append(args, path)
		} else {
			args = append(args, nil)
		}
	}
	return args
}

func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func keysToStrings(keys []models.DocumentKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
