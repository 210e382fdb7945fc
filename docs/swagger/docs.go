// Package swagger provides API documentation
package swagger

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
        "/api/chat": {
            "post": {
                "description": "Prepends the support system prompt and streams the reply as raw UTF-8 text, flushed per fragment. A broken stream means the upstream failed mid-reply.",
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["chat"],
                "summary": "Relay a chat to the completion model",
                "parameters": [
                    {
                        "description": "Conversation so far",
                        "name": "turns",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/chat.Turn"}}
                    }
                ],
                "responses": {
                    "200": {"description": "reply text, chunked", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/conversations/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["conversations"],
                "summary": "Fetch the caller's conversation",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/chat.Document"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["conversations"],
                "summary": "Overwrite the caller's conversation",
                "parameters": [
                    {
                        "description": "Full conversation",
                        "name": "document",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/chat.Document"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "chat.Document": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/chat.Turn"}}
            }
        },
        "chat.Turn": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant", "system"]},
                "content": {"type": "string"}
            }
        },
        "responses.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "request_id": {"type": "string"}
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
	Title:            "Support Chat API",
	Description:      "Streaming support relay and per-identity conversation store",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
