package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("bookings")

		collection.Fields.Add(
			&core.TextField{Name: "customer_id", Required: true},
			&core.TextField{Name: "tour_id", Required: true},
			&core.TextField{Name: "tour_title"},
			&core.DateField{Name: "date", Required: true},
			&core.NumberField{Name: "adults", Required: true, OnlyInt: true},
			&core.NumberField{Name: "children", OnlyInt: true},
			&core.NumberField{Name: "infants", OnlyInt: true},
			&core.TextField{Name: "hotel_id", Required: true},
			&core.TextField{Name: "hotel_name"},
			&core.TextField{Name: "meeting_point_id"},
			&core.TextField{Name: "meeting_point_name"},
			// money as decimal strings, never floats
			&core.TextField{Name: "total_price", Required: true},
			&core.TextField{Name: "amount_paid"},
			&core.SelectField{Name: "payment_type", Required: true, MaxSelect: 1, Values: []string{
				"full", "deposit",
			}},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"pending", "confirmed", "cancelled",
			}},
			&core.SelectField{Name: "ticket_status", Required: true, MaxSelect: 1, Values: []string{
				"valid", "redeemed", "expired",
			}},
			&core.DateField{Name: "redeemed_at"},
			&core.TextField{Name: "redeemed_by"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_bookings_customer", false, "customer_id", "")
		collection.AddIndex("idx_bookings_date", false, "date", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("bookings")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
