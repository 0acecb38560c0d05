package models

import "time"

// LearnerProfileModel is the per-user learner state consumed by the response
// pipeline. RecentErrors and SessionSummaries are bounded, most-recent-first;
// the bound is enforced by the profile service, never here.
type LearnerProfileModel struct {
	Base
	UserID           string      `json:"user_id"     gorm:"type:varchar(64);uniqueIndex;not null"`
	Proficiency      string      `json:"proficiency" gorm:"type:varchar(8)"` // CEFR: A1..C2
	NativeLanguage   string      `json:"native_language" gorm:"type:varchar(16)"`
	RecentErrors     StringArray `json:"recent_errors"     gorm:"type:longtext"`
	SessionSummaries StringArray `json:"session_summaries" gorm:"type:longtext"`
	TouchedAt        time.Time   `json:"touched_at"  gorm:"index"`
}

func (LearnerProfileModel) TableName() string { return "learner_profiles" }
