package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("meeting_points")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.SelectField{Name: "region", Required: true, MaxSelect: 1, Values: []string{
				"North", "East", "South", "West", "Central",
			}},
			&core.JSONField{Name: "coordinates"},
			&core.URLField{Name: "source_link"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("meeting_points")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
