package model

import (
	"fmt"
	"time"

	"mirrorsync/pkg/helpers/ut"
)

type ActionKind string

const (
	ActCreateDir  ActionKind = "CREATE_DIR"
	ActCopyFile   ActionKind = "COPY_FILE"
	ActDeleteFile ActionKind = "DELETE_FILE"
	ActDeleteDir  ActionKind = "DELETE_DIR"
)

func (k ActionKind) IsDeletion() bool {
	return k == ActDeleteFile || k == ActDeleteDir
}

var generateActionID = ut.CreateUint64IDGenerator()

//SyncAction is one filesystem mutation that brings the replica entry at Path closer to the source.
type SyncAction struct {
	ID   uint64     `json:"id"`
	Kind ActionKind `json:"kind"`
	Path string     `json:"path"` // relative to both roots, slash-separated
}

func NewAction(kind ActionKind, relPath string) SyncAction {
	return SyncAction{ID: generateActionID(), Kind: kind, Path: relPath}
}

func CreateDirectory(relPath string) SyncAction { return NewAction(ActCreateDir, relPath) }
func CopyFile(relPath string) SyncAction        { return NewAction(ActCopyFile, relPath) }
func DeleteFile(relPath string) SyncAction      { return NewAction(ActDeleteFile, relPath) }
func DeleteDirectory(relPath string) SyncAction { return NewAction(ActDeleteDir, relPath) }

func (a SyncAction) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Path)
}

//ResultStatus is the outcome of an executed action.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
)

type SyncResult struct {
	Action SyncAction   `json:"action"`
	Status ResultStatus `json:"status"`
	Err    error        `json:"-"`
	At     time.Time    `json:"at"`
}

func Succeeded(a SyncAction, at time.Time) SyncResult {
	return SyncResult{Action: a, Status: ResultSucceeded, At: at}
}

func Failed(a SyncAction, err error, at time.Time) SyncResult {
	return SyncResult{Action: a, Status: ResultFailed, Err: err, At: at}
}

func (r SyncResult) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

//Report summarizes one tick.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []SyncResult
}

func (r Report) Succeeded() int {
	return r.count(ResultSucceeded)
}

func (r Report) Failed() int {
	return r.count(ResultFailed)
}

func (r Report) count(status ResultStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
