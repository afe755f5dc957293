package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingRequestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner_id",
			"event_type_id",
			"guest_email",
			"start_time",
			"end_time",
			"status",
			"confirmation_token",
			"confirmation_expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"event_type_id": bson.M{
				"bsonType": "string",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_confirmation",
					"pending_host_approval",
					"confirmed",
					"declined",
					"expired",
					"cancelled",
				},
			},

			"confirmation_token": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"confirmation_expires_at": bson.M{
				"bsonType": "date",
			},

			"conflicting_booking_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},
		},
	},
}
