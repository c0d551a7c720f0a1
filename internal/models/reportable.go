package models

// Reportable is the record common to every case type: one row per distinct
// problem under tracking. Each row is paired 1-1 with a row in the table of
// the case type named by Report, sharing the same ID.
type Reportable struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Epoch    int64   `gorm:"not null;index:idx_reportables_cluster_epoch"`
	Account  string  `gorm:"size:64;not null"`
	Cluster  string  `gorm:"size:64;not null;index:idx_reportables_cluster_epoch"`
	Report   string  `gorm:"size:32;not null;index"`
	Summary  *string `gorm:"type:json"`
	Claimant *string `gorm:"size:64"`
	TicketID *string `gorm:"size:64"`
	TicketNo *string `gorm:"size:64"`
	Ticks    int     `gorm:"not null;default:1"`
}

// Burst is the type-specific half of a burst case: an account with a
// significant short-term backlog on one resource type.
type Burst struct {
	ID         int64   `gorm:"primaryKey"`
	Resource   string  `gorm:"size:8;not null"`
	Pain       float64 `gorm:"not null"`
	FirstJob   int64   `gorm:"column:firstjob;not null"`
	LastJob    int64   `gorm:"column:lastjob;not null"`
	Submitters string  `gorm:"type:json"`
	State      string  `gorm:"size:16;not null;default:pending"`

	ReportableRef Reportable `gorm:"foreignKey:ID"`
}

// OldJob is the type-specific half of an old-job case: a job waiting in
// queue beyond an age threshold.
type OldJob struct {
	ID        int64  `gorm:"primaryKey"`
	Resource  string `gorm:"size:8;not null"`
	Age       int64  `gorm:"not null"`
	Submitter string `gorm:"size:64;not null"`

	ReportableRef Reportable `gorm:"foreignKey:ID"`
}

func (OldJob) TableName() string { return "oldjobs" }

// History is an append-only record of a change or note against a case.
// Timestamp is epoch seconds; Change is a JSON object {datum, was, now} when
// the event altered a tracked field, null for note-only events.
type History struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	CaseID    int64   `gorm:"not null;index"`
	Analyst   string  `gorm:"size:64;not null"`
	Timestamp int64   `gorm:"not null"`
	Note      *string `gorm:"type:text"`
	Change    *string `gorm:"type:json"`

	CaseRef Reportable `gorm:"foreignKey:CaseID"`
}

func (History) TableName() string { return "history" }

// Notifier is a configured notification sink: a type name understood by the
// dispatcher plus an opaque JSON config blob.
type Notifier struct {
	Name   string `gorm:"primaryKey;size:64"`
	Type   string `gorm:"size:32;not null"`
	Config string `gorm:"type:json;not null"`
}

// SchemaLog records each applied schema version.
type SchemaLog struct {
	Version int   `gorm:"primaryKey"`
	Applied int64 `gorm:"not null"`
}

func (SchemaLog) TableName() string { return "schemalog" }
