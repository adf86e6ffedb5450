package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("tours")

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true},
			&core.SelectField{Name: "region", Required: true, MaxSelect: 1, Values: []string{
				"North", "East", "South", "West", "Central",
			}},
			&core.NumberField{Name: "price", Required: true},
			&core.NumberField{Name: "deposit"},
			&core.TextField{Name: "description"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tours")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
