package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	LockerStatusActive      = "active"
	LockerStatusMaintenance = "maintenance"
	LockerStatusInactive    = "inactive"
)

// Locker is a parcel-locker station with addressable compartments.
// Lockers are seeded from config and served read-only; availability is
// derived from active compartment claims, never stored.
type Locker struct {
	ID                    int64     `yaml:"id" json:"id"`
	Name                  string    `yaml:"name" json:"name"`
	Address               string    `yaml:"address" json:"address"`
	Coordinates           string    `yaml:"coordinates" json:"coordinates"`
	TotalCompartments     int64     `yaml:"total_compartments" json:"total_compartments"`
	AvailableCompartments int64     `yaml:"-" json:"available_compartments"`
	OperatingHours        string    `yaml:"operating_hours,omitempty" json:"operating_hours,omitempty"`
	Status                string    `yaml:"status" json:"status"`
	CreatedAt             time.Time `yaml:"-" json:"created_at"`
	UpdatedAt             time.Time `yaml:"-" json:"updated_at"`
}

// LatLng parses the "lat,lng" coordinate string.
func (l *Locker) LatLng() (float64, float64, error) {
	parts := strings.SplitN(l.Coordinates, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid coordinates %q", l.Coordinates)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", l.Coordinates, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", l.Coordinates, err)
	}
	return lat, lng, nil
}

func (l *Locker) IsActive() bool {
	return l.Status == LockerStatusActive
}
