package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("hotels")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.SelectField{Name: "region", MaxSelect: 1, Values: []string{
				"North", "East", "South", "West", "Central",
			}},
			// {"lat": ..., "lng": ...}; absent for hotels the CMS import
			// could not place
			&core.JSONField{Name: "coordinates"},
			// region -> meeting point id, owned by assignment runs
			&core.JSONField{Name: "assigned_meeting_points"},
			&core.TextField{Name: "assigned_meeting_point_id"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("hotels")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
