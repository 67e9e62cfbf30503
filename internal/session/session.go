// Package session holds the single in-flight upload → select → download
// session and enforces the order of those steps.
package session

import (
	"errors"
	"time"

	"github.com/JonMunkholm/usergroups/internal/tabular"
)

// State is the position of the session in its lifecycle.
type State int

const (
	StateEmpty State = iota
	StateUploaded
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateUploaded:
		return "uploaded"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// TimestampLayout formats session timestamps as sortable YYYY-MM-DD_HH-MM-SS.
const TimestampLayout = "2006-01-02_15-04-05"

// ArchiveSuffix is appended to the session folder name to form the archive name.
const ArchiveSuffix = "_user_groups"

// ArchiveExt is the archive file extension.
const ArchiveExt = ".zip"

var (
	// ErrOutOfOrder is returned when a step is called before its prerequisite.
	ErrOutOfOrder = errors.New("session step out of order")

	// ErrInvalidSelection is returned when selection parameters fail validation.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrEmptyRecord is returned when an upload carries no identifiers.
	ErrEmptyRecord = errors.New("identifier record is empty")
)

// Source describes the upload an IdentifierRecord came from.
type Source struct {
	FileID   string // Spool identifier handed back to the client
	Filename string // Name the client uploaded
}

// Stats summarizes a selection. Field names match the JSON the frontend reads.
type Stats struct {
	TotalUsers       int `json:"total_users"`
	ExpectedOpenRate int `json:"expected_open_rate"`
	MailGroup        int `json:"mail_group"`
	WhatsappGroup    int `json:"whatsapp_group"`
	IgnoredGroup     int `json:"ignored_group"`
}

// Groups partitions the uploaded identifiers by delivery channel.
type Groups struct {
	Mail      []string
	Messaging []string
	Ignored   []string
}

func (g Groups) clone() Groups {
	return Groups{
		Mail:      append([]string(nil), g.Mail...),
		Messaging: append([]string(nil), g.Messaging...),
		Ignored:   append([]string(nil), g.Ignored...),
	}
}

// Record is a snapshot of the session. Records handed out by Store are
// copies; mutating them does not affect the store.
type Record struct {
	State       State
	Source      Source
	Identifiers tabular.IdentifierRecord
	UploadedAt  time.Time

	// Set by Select.
	Timestamp  string
	Category   string
	Rate       int
	Content    string
	Stats      Stats
	Groups     Groups
	SelectedAt time.Time
}

// FolderName is the working directory name for the session's artifacts.
func (r Record) FolderName() string {
	return r.Timestamp + "_" + r.Category
}

// ArchiveName is the archive base name without extension.
func (r Record) ArchiveName() string {
	return r.FolderName() + ArchiveSuffix
}

// Preview is returned by Select so the caller can show the archive name
// before the archive exists.
type Preview struct {
	Stats       Stats  `json:"stats"`
	ArchiveName string `json:"archive_name"`
	Filename    string `json:"zip_filename"`
}
