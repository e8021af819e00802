// Package docs registra el documento OpenAPI servido en /swagger.
// Mantener en sync con las anotaciones @Router de los handlers.
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
        "/sharing/requests": {
            "post": {
                "tags": ["sharing"],
                "summary": "Create a sharing request",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/createRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/sharingRequest"}},
                    "400": {"description": "invalid input"},
                    "403": {"description": "not the record owner"},
                    "404": {"description": "record or recipient not found"},
                    "409": {"description": "a pending request already exists"},
                    "429": {"description": "rate limited"}
                }
            }
        },
        "/sharing/requests/incoming": {
            "get": {
                "tags": ["sharing"],
                "summary": "Requests shared with the caller",
                "parameters": [{"in": "query", "name": "status", "type": "string", "description": "CSV of statuses"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/sharingRequest"}}}}
            }
        },
        "/sharing/requests/outgoing": {
            "get": {
                "tags": ["sharing"],
                "summary": "Requests created by the caller",
                "parameters": [{"in": "query", "name": "status", "type": "string", "description": "CSV of statuses"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/sharingRequest"}}}}
            }
        },
        "/sharing/requests/{requestID}": {
            "get": {
                "tags": ["sharing"],
                "summary": "Get a request (either party only)",
                "parameters": [{"in": "path", "name": "requestID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/sharingRequest"}}, "404": {"description": "not found"}}
            }
        },
        "/sharing/requests/{requestID}/accept": {
            "post": {
                "tags": ["sharing"],
                "summary": "Accept (recipient)",
                "parameters": [{"in": "path", "name": "requestID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the recipient"}, "409": {"description": "already resolved"}, "410": {"description": "expired"}}
            }
        },
        "/sharing/requests/{requestID}/reject": {
            "post": {
                "tags": ["sharing"],
                "summary": "Reject (recipient)",
                "parameters": [{"in": "path", "name": "requestID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the recipient"}, "409": {"description": "already resolved"}}
            }
        },
        "/sharing/requests/{requestID}/revoke": {
            "post": {
                "tags": ["sharing"],
                "summary": "Revoke (sharer)",
                "parameters": [{"in": "path", "name": "requestID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the sharer"}, "409": {"description": "already terminal"}}
            }
        },
        "/records/{recordID}/sharing": {
            "get": {
                "tags": ["sharing"],
                "summary": "Sharing history of a record (owner only)",
                "parameters": [{"in": "path", "name": "recordID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "not the owner"}}
            }
        },
        "/access/records": {
            "get": {"tags": ["access"], "summary": "Record ids visible to the caller", "responses": {"200": {"description": "OK"}}}
        },
        "/access/records/{recordID}": {
            "get": {
                "tags": ["access"],
                "summary": "Access decision for one record",
                "parameters": [{"in": "path", "name": "recordID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "record not found"}}
            }
        },
        "/records": {
            "get": {"tags": ["records"], "summary": "Accessible records with the caller's permission", "responses": {"200": {"description": "OK"}}}
        },
        "/records/{recordID}": {
            "get": {
                "tags": ["records"],
                "summary": "Record detail, gated by the access resolver",
                "parameters": [{"in": "path", "name": "recordID", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "no access"}, "404": {"description": "record not found"}}
            }
        },
        "/admin/sharing/sweep": {
            "post": {"tags": ["admin"], "summary": "Run the expiry sweep now", "responses": {"200": {"description": "OK"}, "403": {"description": "admin only"}}}
        }
    },
    "definitions": {
        "createRequest": {
            "type": "object",
            "required": ["record_id", "recipient_email"],
            "properties": {
                "record_id": {"type": "string"},
                "recipient_email": {"type": "string"},
                "permission": {"type": "string", "enum": ["view_only", "view_download"]},
                "message": {"type": "string", "maxLength": 1000},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "sharingRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "record_id": {"type": "string"},
                "record_filename": {"type": "string"},
                "shared_by_user_id": {"type": "string"},
                "shared_by_email": {"type": "string"},
                "shared_with_user_id": {"type": "string"},
                "shared_with_email": {"type": "string"},
                "permission": {"type": "string", "enum": ["view_only", "view_download"]},
                "message": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "rejected", "revoked", "expired"]},
                "requested_at": {"type": "string", "format": "date-time"},
                "accepted_at": {"type": "string", "format": "date-time"},
                "rejected_at": {"type": "string", "format": "date-time"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        }
    }
}`

// SwaggerInfo se puede ajustar desde main (host, versión).
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "EEG data sharing API",
	Description:      "Sharing ledger and access resolution for EEG records.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
