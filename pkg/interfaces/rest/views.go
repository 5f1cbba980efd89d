// Package rest exposes the kitting engine over HTTP for the staging
// terminals and the kit status board.
package rest

import (
	"time"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// KitView is the wire representation of a kit.
type KitView struct {
	ID         string        `json:"id"`
	WorkOrder  string        `json:"work_order"`
	Stage      string        `json:"stage"`
	Priority   string        `json:"priority"`
	DueDate    time.Time     `json:"due_date"`
	Status     string        `json:"status"`
	LocationID string        `json:"location_id,omitempty"`
	AssignedTo string        `json:"assigned_to,omitempty"`
	Items      []KitItemView `json:"items"`
	Shortages  ShortageStats `json:"shortages"`
	CreatedAt  time.Time     `json:"created_at"`
	StagedAt   *time.Time    `json:"staged_at,omitempty"`
	IssuedAt   *time.Time    `json:"issued_at,omitempty"`
}

// KitItemView is the wire representation of one kit line.
type KitItemView struct {
	Part        string   `json:"part"`
	Required    string   `json:"required"`
	Confirmed   string   `json:"confirmed"`
	UOM         string   `json:"uom,omitempty"`
	Condition   string   `json:"condition"`
	Exception   bool     `json:"exception,omitempty"`
	Substitutes []string `json:"substitutes,omitempty"`
}

// ShortageStats summarizes the kit's open shortages.
type ShortageStats struct {
	Open     int `json:"open"`
	Major    int `json:"major"`
	Blocking int `json:"blocking"`
}

// ShortageView is the wire representation of a shortage report line.
type ShortageView struct {
	Part        string    `json:"part"`
	Required    string    `json:"required"`
	Available   string    `json:"available"`
	Shortfall   string    `json:"shortfall"`
	Severity    string    `json:"severity"`
	Substitute  string    `json:"substitute,omitempty"`
	Provisional bool      `json:"provisional,omitempty"`
	Kits        []string  `json:"kits,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// LocationView is the wire representation of a staging location.
type LocationView struct {
	ID         string   `json:"id"`
	Capacity   string   `json:"capacity"`
	Occupancy  string   `json:"occupancy"`
	Attributes []string `json:"attributes,omitempty"`
	Status     string   `json:"status"`
	Proximity  int      `json:"proximity"`
}

func kitToView(kit *entities.Kit) KitView {
	view := KitView{
		ID:         kit.ID,
		WorkOrder:  kit.WorkOrder,
		Stage:      kit.Stage,
		Priority:   kit.Priority.String(),
		DueDate:    kit.DueDate,
		Status:     kit.Status.String(),
		LocationID: kit.LocationID,
		AssignedTo: kit.AssignedTo,
		Shortages: ShortageStats{
			Open:     kit.Shortages.Open,
			Major:    kit.Shortages.Major,
			Blocking: kit.Shortages.Blocking,
		},
		CreatedAt: kit.CreatedAt,
	}
	if !kit.StagedAt.IsZero() {
		t := kit.StagedAt
		view.StagedAt = &t
	}
	if !kit.IssuedAt.IsZero() {
		t := kit.IssuedAt
		view.IssuedAt = &t
	}

	view.Items = make([]KitItemView, 0, len(kit.Items))
	for i := range kit.Items {
		item := &kit.Items[i]
		subs := make([]string, len(item.Substitutes))
		for j, sub := range item.Substitutes {
			subs[j] = string(sub)
		}
		view.Items = append(view.Items, KitItemView{
			Part:        string(item.Part),
			Required:    item.Required.String(),
			Confirmed:   item.Confirmed.String(),
			UOM:         item.UnitOfMeasure,
			Condition:   item.Condition.String(),
			Exception:   item.Exception,
			Substitutes: subs,
		})
	}
	return view
}

func shortageToView(rec entities.ShortageRecord) ShortageView {
	return ShortageView{
		Part:        string(rec.Part),
		Required:    rec.Required.String(),
		Available:   rec.Available.String(),
		Shortfall:   rec.Shortfall.String(),
		Severity:    rec.Severity.String(),
		Substitute:  string(rec.Substitute),
		Provisional: rec.Provisional,
		Kits:        rec.Kits,
		DetectedAt:  rec.DetectedAt,
	}
}

func locationToView(loc *entities.StagingLocation) LocationView {
	attrs := make([]string, len(loc.Attributes))
	for i, a := range loc.Attributes {
		attrs[i] = string(a)
	}
	return LocationView{
		ID:         loc.ID,
		Capacity:   loc.Capacity.String(),
		Occupancy:  loc.Occupancy.String(),
		Attributes: attrs,
		Status:     loc.Status.String(),
		Proximity:  loc.Proximity,
	}
}
