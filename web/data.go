package web

import "github.com/snap-point/gallery/models"

type LoginData struct {
	GoogleEnabled bool
}

type SearchData struct {
	Query  string
	Items  []models.Media
	Failed bool
}

type ModeratorData struct {
	MaxMB int64
}

type AdminData struct {
	Logs LogsView
}

// LogsView is one page of the activity table.
type LogsView struct {
	Entries    []models.LogEntry
	Page       int
	TotalPages int
	Failed     bool
}

func (v LogsView) Prev() int { return v.Page - 1 }
func (v LogsView) Next() int { return v.Page + 1 }
