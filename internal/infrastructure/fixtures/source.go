// Package fixtures serves the bundled mock dataset the way a remote API
// would, including a fixed delay before every fetch.
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kidsacademy/school-hub/internal/domain/school"
)

//go:embed data/*.json
var dataFS embed.FS

// DefaultFile is the bundled dataset.
const DefaultFile = "data/seed.json"

// ══════════════════════════════════════════════════════════════════════════════
// RAW SHAPES
// Events use optional studentId/classId fields in the raw data; both absent
// means the whole school.
// ══════════════════════════════════════════════════════════════════════════════

type rawDataset struct {
	Students   []school.Student          `json:"students"`
	Attendance []school.AttendanceRecord `json:"attendance"`
	Events     []rawEvent                `json:"events"`
	Payments   []school.Payment          `json:"payments"`
	Users      []school.User             `json:"users"`
}

type rawEvent struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Date      string           `json:"date"`
	Type      school.EventType `json:"type"`
	StudentID string           `json:"studentId,omitempty"`
	ClassID   string           `json:"classId,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	CreatedBy string           `json:"createdBy"`
}

func (e rawEvent) toDomain() school.AcademicEvent {
	return school.AcademicEvent{
		ID:        e.ID,
		Title:     e.Title,
		Date:      e.Date,
		Type:      e.Type,
		Audience:  school.AudienceFrom(e.StudentID, e.ClassID),
		Notes:     e.Notes,
		CreatedBy: e.CreatedBy,
	}
}

// Decode parses a dataset in the raw fixture shape.
func Decode(raw []byte) (school.Dataset, error) {
	var in rawDataset
	if err := json.Unmarshal(raw, &in); err != nil {
		return school.Dataset{}, fmt.Errorf("fixtures: decode: %w", err)
	}

	events := make([]school.AcademicEvent, len(in.Events))
	for i, e := range in.Events {
		events[i] = e.toDomain()
	}

	return school.Dataset{
		Students:   in.Students,
		Attendance: in.Attendance,
		Events:     events,
		Payments:   in.Payments,
		Users:      in.Users,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// Source loads a fixture file after a fixed delay.
type Source struct {
	file    string
	latency time.Duration
	logger  *slog.Logger
}

// NewSource creates a Source for the bundled dataset.
func NewSource(latency time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{file: DefaultFile, latency: latency, logger: logger}
}

// Load waits for the configured latency, then decodes the dataset. It
// returns ctx.Err() if ctx ends first.
func (s *Source) Load(ctx context.Context) (school.Dataset, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return school.Dataset{}, ctx.Err()
		case <-timer.C:
		}
	}

	raw, err := dataFS.ReadFile(s.file)
	if err != nil {
		return school.Dataset{}, fmt.Errorf("fixtures: read %s: %w", s.file, err)
	}

	data, err := Decode(raw)
	if err != nil {
		return school.Dataset{}, err
	}

	s.logger.Debug("fixtures loaded",
		"file", s.file,
		"students", len(data.Students),
		"attendance", len(data.Attendance),
		"events", len(data.Events),
		"payments", len(data.Payments),
		"users", len(data.Users),
	)
	return data, nil
}
