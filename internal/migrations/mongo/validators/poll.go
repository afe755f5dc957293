package validators

import "go.mongodb.org/mongo-driver/bson"

var PollValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"owner_id",
			"title",
			"duration_min",
			"max_votes_per_participant",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  1440,
			},

			"max_votes_per_participant": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"active",
					"closed",
					"finalized",
				},
			},
		},
	},
}

var PollTimeSlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"poll_id",
			"start_time",
			"end_time",
			"vote_count",
		},
		"properties": bson.M{
			"vote_count": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},
		},
	},
}
