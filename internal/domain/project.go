package domain

import "time"

// Project is an assignment target.
type Project struct {
	ID        string
	Name      string
	Status    ProjectStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
