// Package docs registers the swagger document of the gateway HTTP API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/health": {
            "get": {
                "tags": ["system"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/sensors": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "List known sensors",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.KnownSensor"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/api/v1/sensors/{slot}/readings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["sensors"],
                "summary": "Get sensor readings",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "slot", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Reading"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/api/v1/actuators/{slot}/commands": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["actuators"],
                "summary": "List actuator commands",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "slot", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Command"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/api/v1/gateway/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["gateway"],
                "summary": "Gateway status",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/gateway.Status"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "errors.APIError": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "message": {"type": "string"},
                "code": {"type": "integer"},
                "request_id": {"type": "string"}
            }
        },
        "models.Reading": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "slot": {"type": "string"},
                "uri": {"type": "string"},
                "attribute": {"type": "string"},
                "value": {"type": "string"},
                "observed_at": {"type": "string"}
            }
        },
        "models.KnownSensor": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "address": {"type": "string"},
                "active": {"type": "boolean"},
                "first_seen": {"type": "string"},
                "last_seen": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Command": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "slot": {"type": "string"},
                "uri": {"type": "string"},
                "rule": {"type": "string"},
                "delta": {"type": "object"},
                "issued_at": {"type": "string"}
            }
        },
        "gateway.Status": {
            "type": "object",
            "properties": {
                "sensors": {"type": "object"},
                "rules": {"type": "object"},
                "fanOn": {"type": "boolean"},
                "ledColor": {"type": "integer"},
                "heartRateSession": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SmartHome Gateway API",
	Description:      "Sensor registry, rule engine and history of the SmartHome gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
