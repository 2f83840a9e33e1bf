// Package model contains domain models passed between layers.
package model

import "time"

// DateFormat is the day-granularity form used for snapshot partitions.
const DateFormat = "2006-01-02"

// Record holds identity and descriptive metadata for one distinct model.
// The ID is stable across runs ("provider/model-slug") and never changes
// once created; every other field is refreshed on upsert.
type Record struct {
	ID            string    `json:"id" gorm:"primaryKey;size:255"`
	Name          string    `json:"name" gorm:"not null"`
	Provider      string    `json:"provider" gorm:"not null"`
	ContextLength int       `json:"context_length"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName keeps the table name aligned with the tracker schema.
func (Record) TableName() string { return "models" }

// Snapshot is one model's rank and economics on one calendar date.
// Exactly one row exists per (model_id, date); re-ingestion replaces it.
type Snapshot struct {
	ID              uint    `json:"id" gorm:"primaryKey"`
	ModelID         string  `json:"model_id" gorm:"size:255;not null;uniqueIndex:idx_model_date;index:idx_rank_date,priority:2"`
	Date            string  `json:"date" gorm:"size:10;not null;uniqueIndex:idx_model_date;index;index:idx_rank_date,priority:3"`
	Rank            int     `json:"rank" gorm:"not null;index:idx_rank_date,priority:1"`
	RankScore       float64 `json:"rank_score" gorm:"not null"`
	PromptPrice     float64 `json:"prompt_price"`
	CompletionPrice float64 `json:"completion_price"`
}

// TableName keeps the table name aligned with the tracker schema.
func (Snapshot) TableName() string { return "daily_stats" }

// Event is an append-only audit row for a model lifecycle transition.
type Event struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ModelID   string    `json:"model_id" gorm:"size:255;index"`
	Event     string    `json:"event" gorm:"not null"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

// TableName keeps the table name aligned with the tracker schema.
func (Event) TableName() string { return "history" }

// Event kinds recorded in the history table.
const (
	EventNew = "new"
)

// Candidate is one parsed row from the source listing, before ranks are
// assigned or anything is persisted.
type Candidate struct {
	ID              string
	Name            string
	Provider        string
	ContextLength   int
	Description     string
	RankScore       float64
	PromptPrice     float64
	CompletionPrice float64
}

// RankedModel joins a record with its snapshot for one date, used by
// top-N reporting.
type RankedModel struct {
	Record          Record
	Rank            int
	RankScore       float64
	PromptPrice     float64
	CompletionPrice float64
}
