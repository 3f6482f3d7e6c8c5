package todo

import (
	"github.com/teamtodo/server/internal/utils/durationtext"
)

// CreateTodoRequest is the todo creation payload. Duration may be given
// either as milliseconds or as duration text ("2w 1d 3h").
type CreateTodoRequest struct {
	Title              string  `json:"title"`
	Completed          bool    `json:"completed"`
	TeamIDs            []int64 `json:"teamIds"`
	StartAtEpochMillis *int64  `json:"startAtEpochMillis"`
	DurationMillis     *int64  `json:"durationMillis"`
	DurationText       *string `json:"durationText"`
}

// ReplaceTodoRequest is the full-update payload. Omitted fields reset to
// their defaults: completed to false, teams and scheduling cleared.
type ReplaceTodoRequest struct {
	Title              string  `json:"title"`
	Completed          bool    `json:"completed"`
	TeamIDs            []int64 `json:"teamIds"`
	StartAtEpochMillis *int64  `json:"startAtEpochMillis"`
	DurationMillis     *int64  `json:"durationMillis"`
	DurationText       *string `json:"durationText"`
}

// PatchTodoRequest is the partial-update payload. Only supplied fields
// change. TeamIDs distinguishes absent/null (unchanged) from an empty
// list (clear associations) via the pointer.
type PatchTodoRequest struct {
	Title              *string  `json:"title"`
	Completed          *bool    `json:"completed"`
	TeamIDs            *[]int64 `json:"teamIds"`
	StartAtEpochMillis *int64   `json:"startAtEpochMillis"`
	DurationMillis     *int64   `json:"durationMillis"`
	DurationText       *string  `json:"durationText"`
}

// Response is the wire representation of a todo. DueAtEpochMillis is
// computed from start and duration, never stored.
type Response struct {
	ID                   int64   `json:"id"`
	Title                string  `json:"title"`
	Completed            bool    `json:"completed"`
	CreatedAtEpochMillis int64   `json:"createdAtEpochMillis"`
	UpdatedAtEpochMillis int64   `json:"updatedAtEpochMillis"`
	TeamIDs              []int64 `json:"teamIds"`
	StartAtEpochMillis   *int64  `json:"startAtEpochMillis,omitempty"`
	DurationMillis       *int64  `json:"durationMillis,omitempty"`
	DurationText         *string `json:"durationText,omitempty"`
	DueAtEpochMillis     *int64  `json:"dueAtEpochMillis,omitempty"`
}

// ToResponse converts a todo to its wire representation.
func (t *Todo) ToResponse(teamIDs []int64) *Response {
	if teamIDs == nil {
		teamIDs = []int64{}
	}

	resp := &Response{
		ID:                   t.ID,
		Title:                t.Title,
		Completed:            t.Completed,
		CreatedAtEpochMillis: t.CreatedAt.UnixMilli(),
		UpdatedAtEpochMillis: t.UpdatedAt.UnixMilli(),
		TeamIDs:              teamIDs,
	}

	if t.StartAt != nil {
		startAt := t.StartAt.UnixMilli()
		resp.StartAtEpochMillis = &startAt
	}
	if t.DurationMillis != nil {
		millis := *t.DurationMillis
		resp.DurationMillis = &millis
		text := durationtext.Format(millis)
		resp.DurationText = &text
	}
	if t.StartAt != nil && t.DurationMillis != nil {
		dueAt := t.StartAt.UnixMilli() + *t.DurationMillis
		resp.DueAtEpochMillis = &dueAt
	}

	return resp
}
