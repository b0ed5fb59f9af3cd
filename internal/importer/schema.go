// Package importer reads catalog seed files for the reference backend.
package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// SeedSchema is the top-level JSON structure of a seed file. The categories
// array has the same shape as the tree endpoint's response, so a dumped
// catalog can be seeded again.
type SeedSchema struct {
	Projects   []ProjectSeed  `json:"projects" validate:"dive"`
	Categories []CategorySeed `json:"categories" validate:"dive"`
}

type ProjectSeed struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name" validate:"required"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=active paused done archived"`
}

type CategorySeed struct {
	ID     string      `json:"id" validate:"required"`
	Name   string      `json:"name" validate:"required"`
	Rank   int         `json:"rank"`
	Groups []GroupSeed `json:"groups" validate:"dive"`
}

type GroupSeed struct {
	ID        string         `json:"id" validate:"required"`
	Name      string         `json:"name" validate:"required"`
	Rank      int            `json:"rank"`
	Templates []TemplateSeed `json:"templates" validate:"dive"`
}

type TemplateSeed struct {
	ID            string        `json:"id" validate:"required"`
	Name          string        `json:"name" validate:"required"`
	Rank          int           `json:"rank"`
	BudgetedHours float64       `json:"budgetedHours" validate:"gte=0"`
	Subtasks      []SubtaskSeed `json:"subtasks" validate:"dive"`
}

type SubtaskSeed struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Rank          int     `json:"rank"`
	BudgetedHours float64 `json:"budgetedHours" validate:"gte=0"`
}

// LoadSeedSchema reads and parses a seed JSON file.
func LoadSeedSchema(path string) (*SeedSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSeedSchema(f)
}

// ParseSeedSchema decodes a seed document. Unknown fields are rejected so a
// typo does not silently drop data.
func ParseSeedSchema(r io.Reader) (*SeedSchema, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var schema SeedSchema
	if err := dec.Decode(&schema); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &schema, nil
}
