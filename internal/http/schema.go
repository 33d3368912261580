package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const schemaPayment = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["cartItems", "address"],
  "properties": {
    "cartItems": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "price", "cartQuantity"],
        "properties": {
          "id": { "type": "integer" },
          "price": { "type": "number", "minimum": 0 },
          "cartQuantity": { "type": "integer", "minimum": 1 },
          "code": { "type": ["string", "null"] }
        }
      }
    },
    "address": { "type": ["object", "string"] },
    "customer_id": { "type": ["string", "integer", "null"] },
    "discountOptions": { "type": ["array", "null"], "items": { "type": "string" } },
    "fcm": { "type": ["string", "null"] }
  }
}`

const schemaCallback = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["data", "mac"],
  "properties": {
    "data": { "type": "string" },
    "mac": { "type": "string" }
  }
}`

var (
	paymentLoader  = gojsonschema.NewStringLoader(schemaPayment)
	callbackLoader = gojsonschema.NewStringLoader(schemaCallback)
)

func validateJSONSchema(schemaLoader gojsonschema.JSONLoader, body []byte) error {
	loader := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(schemaLoader, loader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for i, e := range result.Errors() {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(e.String())
		}
		return fmt.Errorf("request does not conform to schema: %s", sb.String())
	}
	return nil
}
