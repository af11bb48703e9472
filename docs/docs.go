// Package docs registers the OpenAPI document served at /docs.
// Regenerate after changing handler annotations:
//
//	swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "Courtside"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/imports/template": {"get": {"tags": ["imports"], "summary": "Download import template", "security": [{"BearerAuth": []}], "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}}},
        "/imports/parse": {"post": {"tags": ["imports"], "summary": "Parse roster spreadsheet", "security": [{"BearerAuth": []}], "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/imports/preview": {"post": {"tags": ["imports"], "summary": "Preview roster import", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/imports/execute": {"post": {"tags": ["imports"], "summary": "Execute roster import", "security": [{"BearerAuth": []}], "parameters": [{"type": "boolean", "name": "force", "in": "query"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/registrations": {"post": {"tags": ["registrations"], "summary": "Register players", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/payments/checkout": {"post": {"tags": ["payments"], "summary": "Start checkout", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}}},
        "/payments/{id}/invoice.pdf": {"get": {"tags": ["payments"], "summary": "Download invoice", "security": [{"BearerAuth": []}], "produces": ["application/pdf"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/webhooks/stripe": {"post": {"tags": ["payments"], "summary": "Stripe webhook", "parameters": [{"type": "string", "name": "Stripe-Signature", "in": "header", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/players/{id}/welcome.pdf": {"get": {"tags": ["players"], "summary": "Download welcome kit", "security": [{"BearerAuth": []}], "produces": ["application/pdf"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/teams": {"get": {"tags": ["teams"], "summary": "List teams", "parameters": [{"type": "string", "name": "season", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/teams/{id}/schedule": {
            "get": {"tags": ["schedule"], "summary": "Team schedule", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["schedule"], "summary": "Create schedule event", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}}
        },
        "/schedule/{eventID}": {"delete": {"tags": ["schedule"], "summary": "Delete schedule event", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "eventID", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/teams/{id}/roster": {"get": {"tags": ["teams"], "summary": "Team roster", "security": [{"BearerAuth": []}], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}},
        "/admin/summary": {"get": {"tags": ["admin"], "summary": "Admin dashboard", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Courtside API",
	Description:      "Youth basketball club back office: roster imports, registrations, payments, schedules and documents.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
