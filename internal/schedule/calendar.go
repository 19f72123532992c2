package schedule

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"league-games-service/internal/domain"
)

type calendarFile struct {
	Events []struct {
		Name  string `yaml:"name"`
		Dates []struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
		} `yaml:"dates"`
	} `yaml:"events"`
}

// LoadCalendar reads the static event calendar from a YAML file. The result
// is immutable for the life of the process; status is computed per request.
func LoadCalendar(path string, loc *time.Location) ([]domain.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar: %w", err)
	}
	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	activities := make([]domain.Activity, 0, len(file.Events))
	for _, ev := range file.Events {
		activity := domain.Activity{Name: ev.Name}
		for _, d := range ev.Dates {
			start, err := ParseDate(d.Start, loc)
			if err != nil {
				return nil, fmt.Errorf("event %q: %w", ev.Name, err)
			}
			end := start
			if d.End != "" {
				if end, err = ParseDate(d.End, loc); err != nil {
					return nil, fmt.Errorf("event %q: %w", ev.Name, err)
				}
			}
			activity.Ranges = append(activity.Ranges, domain.DateRange{Start: start, End: end})
		}
		activities = append(activities, activity)
	}
	return activities, nil
}
