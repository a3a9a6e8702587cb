package validators

import "go.mongodb.org/mongo-driver/bson"

var SwapRequestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"requester_id",
			"target_owner_id",
			"offered_slot_id",
			"target_slot_id",
			"status",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"requester_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"target_owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"offered_slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"target_slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"message": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"PENDING",
					"ACCEPTED",
					"REJECTED",
				},
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"responded_at": bson.M{
				"bsonType": []string{"date", "null"},
			},
		},
	},
}
