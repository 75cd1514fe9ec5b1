package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryRepo interface {
	ListNames(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	SeedNames(ctx context.Context, names []string) error
}

// CategoryGroup agrupa categorías para el selector del admin. La taxonomía es
// estática; solo se muestran los nombres que existen en la tabla categories.
type CategoryGroup struct {
	Group      string   `json:"group"`
	Categories []string `json:"categories"`
}

// CategoryGroups es la taxonomía de dos niveles del catálogo de muebles.
// El orden de los grupos es el orden de render del selector.
var CategoryGroups = []CategoryGroup{
	{Group: "Living Room", Categories: []string{
		"Epoxy Table", "Center Table", "Sofa/Couch/Bean", "End Table", "Arm Chair",
		"TV Cabinet", "Display Cabinet", "Shelf", "Carpet/Rug",
		"Lamp/Light/Chandelier", "Living Room Set",
	}},
	{Group: "Dining", Categories: []string{
		"Dining Table", "Dining Chair", "Dinner Wagon", "Fine Dining Furniture",
	}},
	{Group: "Bedroom", Categories: []string{
		"Bed", "Murphy Bed", "Bed Side Table", "Dressing Table", "Bedroom Set",
	}},
	{Group: "Office", Categories: []string{
		"Study Table", "Office Desk", "Conference Table", "Modular Work Station",
		"Visitor Chair", "Break Room Furniture", "Office Set",
	}},
	{Group: "Storage", Categories: []string{
		"Cabinet/Almira", "Book Shelf", "Shoe Rack", "Store Cabinet",
	}},
	{Group: "Restaurant", Categories: []string{
		"Fine Dining Furniture", "Reception Furniture", "Bar Stool", "Cash Counter",
		"Restaurant Set",
	}},
	{Group: "Industrial", Categories: []string{
		"PU Flooring", "Lab Clear Coat", "Industrial Solutions",
	}},
	{Group: "Interior", Categories: []string{
		"Interior Consultation", "Project Execution", "Epoxy Services", "Portable Partition",
	}},
	{Group: "Kitchen & Bath", Categories: []string{
		"Kitchen Counter Top", "Wooden Wash Basin",
	}},
}

// GroupedCategories filtra la taxonomía contra la lista de nombres existentes.
// Un grupo sin categorías presentes no se incluye.
func GroupedCategories(existing []string) []CategoryGroup {
	set := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		set[n] = struct{}{}
	}
	out := []CategoryGroup{}
	for _, g := range CategoryGroups {
		kept := []string{}
		for _, c := range g.Categories {
			if _, ok := set[c]; ok {
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			out = append(out, CategoryGroup{Group: g.Group, Categories: kept})
		}
	}
	return out
}
