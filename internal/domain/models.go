package domain

import "time"

// Status is the display state of a scheduled activity relative to "now".
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Mode selects the quiz length variant.
type Mode string

const (
	// ModeQuick plays a fixed number of rounds (10 by default).
	ModeQuick Mode = "quick"
	// ModeComplete plays one round per roster entry.
	ModeComplete Mode = "complete"
)

// Modes lists every playable mode; leaderboards exist per mode.
var Modes = []Mode{ModeQuick, ModeComplete}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeQuick || m == ModeComplete
}

// Gender categorizes roster entries; distractors are sampled within a category.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// DateRange is one contiguous session of an activity, inclusive on both ends.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Activity is a dated event or tournament on the league calendar.
// Ranges are chronological by construction and immutable after load;
// only the first range's start and the last range's end drive classification.
type Activity struct {
	Name   string      `json:"name"`
	Ranges []DateRange `json:"dates"`
}

// FirstStart returns the start of the first range.
func (a Activity) FirstStart() time.Time {
	if len(a.Ranges) == 0 {
		return time.Time{}
	}
	return a.Ranges[0].Start
}

// LastEnd returns the end of the last range.
func (a Activity) LastEnd() time.Time {
	if len(a.Ranges) == 0 {
		return time.Time{}
	}
	return a.Ranges[len(a.Ranges)-1].End
}

// ClassifiedActivity pairs an activity with its status for one render pass.
// Status is derived per request and never cached.
type ClassifiedActivity struct {
	Activity
	Status Status `json:"status"`
}

// RosterEntry is one participant eligible to appear as a quiz subject or option.
type RosterEntry struct {
	Name     string `json:"name"`
	HouseID  int    `json:"houseId"`
	Gender   Gender `json:"gender"`
	ImageRef string `json:"imageRef,omitempty"`
}

// Roster is the fixed participant list, constructed once at load.
type Roster []RosterEntry

// SameGender returns the entries sharing gender g, excluding the named entry.
func (r Roster) SameGender(g Gender, exclude string) []RosterEntry {
	peers := make([]RosterEntry, 0, len(r))
	for _, e := range r {
		if e.Gender == g && e.Name != exclude {
			peers = append(peers, e)
		}
	}
	return peers
}

// Question is one round: the subject plus three same-gender distractors,
// already shuffled for display. Exactly one option equals the subject.
type Question struct {
	Subject RosterEntry   `json:"-"`
	Options []RosterEntry `json:"options"`
}

// ScoreRecord holds a player's persisted best score per mode.
type ScoreRecord struct {
	Player string       `json:"player"`
	Best   map[Mode]int `json:"best"`
}

// LeaderboardEntry is one row of a per-mode top-N listing.
type LeaderboardEntry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}
