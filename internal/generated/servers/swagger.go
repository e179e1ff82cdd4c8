package servers

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

// SwaggerInfo is the document served by the Swagger UI at /swagger/doc.json.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Title:            "Order lifecycle API",
	BasePath:         "/",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  string(openapiSpec),
}

func init() {
	// Serve JSON when the document parses; the UI copes with the YAML otherwise.
	if doc, err := openapi3.NewLoader().LoadFromData(openapiSpec); err == nil {
		if raw, jsonErr := doc.MarshalJSON(); jsonErr == nil {
			SwaggerInfo.SwaggerTemplate = string(raw)
		}
	}
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
