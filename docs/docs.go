// Newswire - Real-time Alert Ingestion and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/newswire

// Package docs registers the OpenAPI document served at /swagger/.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "AGPL-3.0-or-later",
            "url": "https://www.gnu.org/licenses/agpl-3.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "PublisherKey": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    },
    "paths": {
        "/channels": {
            "get": {
                "tags": ["Channels"],
                "summary": "List channels",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/stats": {
            "get": {
                "tags": ["Stats"],
                "summary": "Protocol statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/subscribers": {
            "post": {
                "tags": ["Subscribers"],
                "summary": "Create a subscriber",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.CreateSubscriberRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/subscribers/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Get a subscriber",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/subscribers/{id}/channels": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Replace subscriber channels",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.UpdateChannelsRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/subscribers/{id}/deposit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Deposit balance",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AmountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "INVALID_AMOUNT", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/subscribers/{id}/withdraw": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Withdraw balance",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AmountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "INVALID_AMOUNT", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "402": {"description": "INSUFFICIENT_BALANCE", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/subscribers/{id}/deactivate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Deactivate a subscriber",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/subscribers/{id}/reactivate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "Reactivate a subscriber",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/subscribers/{id}/receipts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Subscribers"],
                "summary": "List delivery receipts",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List recent alerts",
                "parameters": [
                    {"type": "string", "description": "Single channel name", "name": "channel", "in": "query"},
                    {"type": "string", "description": "Comma-separated channel names", "name": "channels", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/alerts/publish": {
            "post": {
                "security": [{"PublisherKey": []}],
                "tags": ["Alerts"],
                "summary": "Publish an alert",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/intake.PublishAlertRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "VALIDATION_FAILED", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "401": {"description": "UNAUTHENTICATED", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "403": {"description": "FORBIDDEN_CHANNEL", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "DUPLICATE", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "429": {"description": "RATE_LIMITED", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/alerts/{id}/verify": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Verify alert content",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "hash", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/publishers": {
            "post": {
                "tags": ["Publishers"],
                "summary": "Register a publisher",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/intake.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/publishers/self/withdraw-stake": {
            "post": {
                "tags": ["Publishers"],
                "summary": "Withdraw publisher stake",
                "parameters": [{"type": "string", "name": "X-API-Key", "in": "header", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/publishers/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Get a publisher",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/admin/publishers/{id}/status": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Set publisher status",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.SetStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/admin/publishers/{id}/slash": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Slash a publisher",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AmountRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/admin/ingest": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Queue or process raw items",
                "parameters": [
                    {"type": "string", "description": "sync to process in the request", "name": "mode", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/dedup": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Look up a dedup fingerprint",
                "parameters": [
                    {"type": "string", "description": "Headline", "name": "headline", "in": "query", "required": true},
                    {"type": "string", "description": "Channel", "name": "channel", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/admin/alerts/dedupe": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Remove duplicate alerts",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        }
    },
    "definitions": {
        "api.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {}
            }
        },
        "api.APIMeta": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"$ref": "#/definitions/api.APIError"},
                "meta": {"$ref": "#/definitions/api.APIMeta"}
            }
        },
        "api.AmountRequest": {
            "type": "object",
            "properties": {"amount": {"type": "string", "example": "1.50"}}
        },
        "api.CreateSubscriberRequest": {
            "type": "object",
            "properties": {
                "walletAddress": {"type": "string"},
                "channels": {"type": "array", "items": {"type": "string"}},
                "initialDeposit": {"type": "string", "example": "10.00"}
            }
        },
        "api.UpdateChannelsRequest": {
            "type": "object",
            "properties": {"channels": {"type": "array", "items": {"type": "string"}}}
        },
        "api.SetStatusRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["pending", "active", "suspended", "banned"]}}
        },
        "intake.PublishAlertRequest": {
            "type": "object",
            "properties": {
                "channel": {"type": "string"},
                "headline": {"type": "string"},
                "summary": {"type": "string"},
                "sourceUrl": {"type": "string"},
                "entities": {"type": "array", "items": {"type": "string"}},
                "tickers": {"type": "array", "items": {"type": "string"}},
                "tokens": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
                "sentiment": {"type": "string", "enum": ["bullish", "bearish", "neutral", "mixed"]},
                "impactScore": {"type": "number"}
            }
        },
        "intake.RegisterRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "channels": {"type": "array", "items": {"type": "string"}},
                "stake": {"type": "string"},
                "metadataUri": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Newswire API",
	Description:      "Real-time alert ingestion and metered WebSocket distribution.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
