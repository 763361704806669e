// Package catalog holds the built-in construction task definitions: one
// TaskConfig per service line, each with its form schema and conditional
// fields. The set is fixed at startup and validated once.
package catalog

import (
	"fmt"

	"github.com/ajayprojects/portal/pkg/models"
)

// Catalog is a read-only lookup over the task configurations.
type Catalog struct {
	tasks []models.TaskConfig
	byID  map[string]models.TaskConfig
}

// New builds the catalog from the built-in task set and validates every
// field dependency. An invalid schema is a programming error.
func New() (*Catalog, error) {
	tasks := builtinTasks()
	byID := make(map[string]models.TaskConfig, len(tasks))
	for _, t := range tasks {
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
		byID[t.ID] = t
	}
	return &Catalog{tasks: tasks, byID: byID}, nil
}

// List returns all tasks in display order.
func (c *Catalog) List() []models.TaskConfig {
	return c.tasks
}

// Get returns the task with the given id.
func (c *Catalog) Get(id string) (models.TaskConfig, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// validate checks that every dependency references a declared field, that
// dependent fields carry at least one trigger value, and that the
// dependency graph has no cycles.
func validate(t models.TaskConfig) error {
	names := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if names[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		names[f.Name] = true
	}

	deps := make(map[string]string)
	for _, f := range t.Fields {
		if f.DependsOn == "" {
			if len(f.ShowWhen) > 0 {
				return fmt.Errorf("field %q has show_when without depends_on", f.Name)
			}
			continue
		}
		if !names[f.DependsOn] {
			return fmt.Errorf("field %q depends on unknown field %q", f.Name, f.DependsOn)
		}
		if len(f.ShowWhen) == 0 {
			return fmt.Errorf("field %q has depends_on without show_when", f.Name)
		}
		deps[f.Name] = f.DependsOn
	}

	for name := range deps {
		seen := map[string]bool{name: true}
		for cur, ok := deps[name]; ok; cur, ok = deps[cur] {
			if seen[cur] {
				return fmt.Errorf("dependency cycle through field %q", cur)
			}
			seen[cur] = true
		}
	}
	return nil
}

// ── Built-in Tasks ───────────────────────────────────────────

func commonFields() []models.TaskField {
	return []models.TaskField{
		{
			Name: "area_location", Label: "Hyderabad Area", Kind: models.FieldSelect,
			Placeholder: "Select locality",
			Options: []string{
				"Madhapur", "Gachibowli", "Kukatpally", "Jubilee Hills", "Banjara Hills",
				"Manikonda", "Kondapur", "Ameerpet", "Uppal", "Secunderabad",
			},
		},
		{
			Name: "quality_grade", Label: "Finishing Grade", Kind: models.FieldSelect,
			Placeholder: "Select grade",
			Options: []string{
				"Budget (Basic)", "Standard (Regular)", "Premium (Branded)", "Luxury (High-end)",
			},
		},
	}
}

func builtinTasks() []models.TaskConfig {
	return []models.TaskConfig{
		{
			ID:          "full_house",
			Title:       "Full Project",
			Icon:        "🏗️",
			Description: "Complete build estimate for a new house or flat finishing.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "project_subtype", Label: "Build Type", Kind: models.FieldSelect,
					Placeholder: "Select type",
					Options:     []string{"Individual House", "Apartment Flat"},
				},
				models.TaskField{
					Name: "totalArea", Label: "Total Area (sq ft)", Kind: models.FieldNumber,
					Placeholder: "e.g., 1500",
				},
				models.TaskField{
					Name: "floors", Label: "Number of Floors", Kind: models.FieldNumber,
					Placeholder: "1",
					DependsOn:   "project_subtype",
					ShowWhen:    []string{"Individual House"},
				},
				models.TaskField{
					Name: "flatStatus", Label: "Current Flat Condition", Kind: models.FieldSelect,
					Placeholder: "Select status",
					Options:     []string{"Bare Shell (Brick walls)", "Semi-Finished", "Renovation Only"},
					DependsOn:   "project_subtype",
					ShowWhen:    []string{"Apartment Flat"},
				},
			),
		},
		{
			ID:          "electrical",
			Title:       "Electrical Work",
			Icon:        "⚡",
			Description: "Wiring and point installation with Goldmedal & Finolex.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "serviceType", Label: "Service Category", Kind: models.FieldSelect,
					Placeholder: "Select service",
					Options:     []string{"New Wiring (Concealed)", "Surface Wiring", "Fixture Installation Only"},
				},
				models.TaskField{
					Name: "rooms", Label: "Number of Rooms", Kind: models.FieldNumber,
					Placeholder: "e.g., 3",
				},
			),
		},
		{
			ID:          "painting",
			Title:       "Painting Work",
			Icon:        "🎨",
			Description: "Estimate paint quantity, primer, and labor for walls and ceilings.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "area", Label: "Wall Area (sq ft)", Kind: models.FieldNumber,
					Placeholder: "e.g., 500",
				},
				models.TaskField{
					Name: "brandPreference", Label: "Brand Preference", Kind: models.FieldSelect,
					Placeholder: "Select brand",
					Options:     []string{"Asian Paints Royale", "Birla Opus Style", "Berger Silk", "Nerolac Impressions"},
				},
			),
		},
		{
			ID:          "tiling",
			Title:       "Tiles & Flooring",
			Icon:        "📐",
			Description: "Calculate tiles needed and labor for floor/wall fixing.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "floorArea", Label: "Floor Area (sq ft)", Kind: models.FieldNumber,
					Placeholder: "e.g., 200",
				},
				models.TaskField{
					Name: "tileType", Label: "Tile Category", Kind: models.FieldSelect,
					Placeholder: "Select type",
					Options:     []string{"Double Charged Vitrified", "Italian Marble", "GVT (Glazed Vitrified)", "Ceramic Wall Tiles"},
				},
			),
		},
		{
			ID:          "plumbing",
			Title:       "Plumbing & Sanitary",
			Icon:        "🚰",
			Description: "Pipe installation, fixtures, and drainage planning.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "bathrooms", Label: "Number of Bathrooms", Kind: models.FieldNumber,
					Placeholder: "e.g., 2",
				},
			),
		},
		{
			ID:          "wall_construction",
			Title:       "Wall & Masonry",
			Icon:        "🧱",
			Description: "Calculate bricks, cement, sand, and labor for walls.",
			Fields: append(commonFields(),
				models.TaskField{
					Name: "width", Label: "Width (feet)", Kind: models.FieldNumber,
					Placeholder: "e.g., 10",
				},
				models.TaskField{
					Name: "height", Label: "Height (feet)", Kind: models.FieldNumber,
					Placeholder: "e.g., 10",
				},
			),
		},
	}
}
