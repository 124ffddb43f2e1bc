package models

import "time"

// DocumentRemark is one entry in a document's remark history.
type DocumentRemark struct {
	ID            int64       `db:"id" json:"id"`
	ApplicationID int64       `db:"application_id" json:"application_id"`
	DocumentName  DocumentKey `db:"document_name" json:"document_name"`
	Remark        string      `db:"remark" json:"remark"`
	CreatedBy     *int64      `db:"created_by" json:"created_by"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// LatestRemark is the response shape for the most recent remark.
type LatestRemark struct {
	Remark    string     `json:"remark"`
	CreatedAt *time.Time `json:"created_at"`
}
