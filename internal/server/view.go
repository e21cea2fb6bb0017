// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/session"
	"github.com/pdiddy/mathnote/pkg/types"
)

// StateView is the JSON form of a session state.
type StateView struct {
	Version  uint64           `json:"version"`
	TaskID   string           `json:"task_id,omitempty"`
	Mode     types.SubmitMode `json:"mode,omitempty"`
	Status   types.TaskStatus `json:"status,omitempty"`
	Progress *types.Progress  `json:"progress,omitempty"`
	View     note.ViewState   `json:"view"`
	Loading  string           `json:"loading,omitempty"`
	Media    *MediaView       `json:"media,omitempty"`
	Title    string           `json:"title,omitempty"`
	Slides   int              `json:"slides"`
	SOS      []float64        `json:"sos"`
	Polling  bool             `json:"polling"`
	Settled  bool             `json:"settled"`
	Export   ExportView       `json:"export"`
	Notices  []session.Notice `json:"notices,omitempty"`
}

// MediaView tells the player what to load.
type MediaView struct {
	Kind    types.MediaKind `json:"kind"`
	PlayURL string          `json:"play_url"`
}

// ExportView is the Notion export status.
type ExportView struct {
	InFlight bool   `json:"in_flight"`
	PageURL  string `json:"page_url,omitempty"`
}

func newStateView(st session.State) StateView {
	v := StateView{
		Version: st.Version,
		TaskID:  st.TaskID,
		Mode:    st.Mode,
		View:    note.Classify(st.View()),
		SOS:     make([]float64, len(st.SOS)),
		Polling: st.Polling,
		Settled: st.Settled(),
		Export:  ExportView{InFlight: st.Export.InFlight, PageURL: st.Export.PageURL},
		Notices: session.Notices(st),
	}
	for i, ev := range st.SOS {
		v.SOS[i] = ev.Timestamp
	}
	if st.Task != nil {
		v.Status = st.Task.Status
		if st.Task.Progress != nil {
			p := st.Task.Progress.Clamp()
			v.Progress = &p
		}
	}
	if v.View == note.StateLoading {
		v.Loading = note.LoadingLine(st.Task)
	}
	if !st.Media.IsZero() {
		v.Media = &MediaView{Kind: st.Media.Kind, PlayURL: st.Media.PlayURL()}
	}
	if st.Note != nil {
		v.Title = st.Note.Title
		v.Slides = len(st.Note.Slides)
	}
	return v
}
