package dto

import "time"

type QueryRecordRequest struct {
	Kind  string         `json:"kind"`
	Props map[string]any `json:"props,omitempty"`
}

type QueryRecordResponse struct {
	OK bool `json:"ok"`
}

type StreakResponse struct {
	CurrentStreakDays int        `json:"current_streak_days"`
	LongestStreakDays int        `json:"longest_streak_days"`
	ActiveDays        int        `json:"active_days"`
	AwarenessPercent  int        `json:"awareness_percent"`
	AwarenessLocked   bool       `json:"awareness_locked"`
	LastActiveAt      *time.Time `json:"last_active_at,omitempty"`
}
