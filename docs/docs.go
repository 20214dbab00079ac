// Package docs registers the OpenAPI document of the companion store with
// swag so gin-swagger can serve it at /swagger/*any.
//
// The annotations live on the handlers in internal/http/handlers; regenerate
// this file with `swag init -g internal/http/router.go` after changing them.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/friends": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Friends"],
                "summary": "List friends",
                "operationId": "listFriends",
                "parameters": [
                    {"type": "string", "description": "Group id filter", "name": "group", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListFriendsResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Friends"],
                "summary": "Add a friend",
                "operationId": "addFriend",
                "parameters": [
                    {"description": "Friend payload (friendCode required)", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.NewFriend"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AddFriendResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown friend code", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Friend already exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/friends/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Friends"],
                "summary": "Get a friend",
                "operationId": "getFriend",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Friend"}},
                    "404": {"description": "Friend not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Friends"],
                "summary": "Update a friend",
                "operationId": "updateFriend",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.FriendUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Friend"}},
                    "404": {"description": "Friend or group not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Friends"],
                "summary": "Delete a friend",
                "operationId": "deleteFriend",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "deleteMemory", "in": "query"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Friend not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/friends/{id}/send": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Send a message and get the AI reply",
                "operationId": "sendMessage",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SendRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.SendResult"}},
                    "409": {"description": "Exchange in flight or abandoned", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Provider failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/friends/{id}/exchange": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Abandon the pending AI exchange",
                "operationId": "abandonExchange",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AbandonResponse"}}
                }
            }
        },
        "/friends/{id}/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "List chat messages (paginated)",
                "operationId": "listMessages",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 50, "maximum": 500, "minimum": 1, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMessagesResponse"}}
                }
            }
        },
        "/friends/{id}/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Stats"],
                "summary": "Get token statistics",
                "operationId": "getStats",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TokenStats"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Stats"],
                "summary": "Reset token statistics",
                "operationId": "resetStats",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.TokenStats"}}}
            }
        },
        "/groups": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Groups"],
                "summary": "List groups",
                "operationId": "listGroups",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListGroupsResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Groups"],
                "summary": "Create a group",
                "operationId": "addGroup",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.GroupNameRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Group"}},
                    "409": {"description": "Name already in use", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/codes/generate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Codes"],
                "summary": "Generate a friend code",
                "operationId": "generateFriendCode",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.FriendCode"}},
                    "503": {"description": "Code space exhausted", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/config/api": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Config"],
                "summary": "Get the current API configuration",
                "operationId": "getAPIConfig",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.APIConfig"}}}
            }
        },
        "/export": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Transfer"],
                "summary": "Export the whole store",
                "operationId": "exportAll",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ExportDocument"}}}
            }
        },
        "/import": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Transfer"],
                "summary": "Import a document",
                "operationId": "importDocument",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ExportDocument"}}],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Invalid document", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "507": {"description": "Storage write failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        },
        "handlers.AddFriendResponse": {"type": "object", "properties": {"id": {"type": "string", "example": "friend_AB12CD"}}},
        "handlers.AbandonResponse": {"type": "object", "properties": {"abandoned": {"type": "boolean"}}},
        "handlers.SendRequest": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}},
        "handlers.GroupNameRequest": {"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}},
        "handlers.ListFriendsResponse": {"type": "object", "properties": {"friends": {"type": "array", "items": {"$ref": "#/definitions/domain.Friend"}}}},
        "handlers.ListGroupsResponse": {"type": "object", "properties": {"groups": {"type": "array", "items": {"$ref": "#/definitions/domain.Group"}}}},
        "handlers.ListMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "services.NewFriend": {
            "type": "object",
            "properties": {
                "friendCode": {"type": "string"}, "avatar": {"type": "string"}, "nickname": {"type": "string"},
                "remark": {"type": "string"}, "realname": {"type": "string"}, "signature": {"type": "string"},
                "persona": {"type": "string"}, "pokeSuffix": {"type": "string"}, "group": {"type": "string"},
                "addSource": {"type": "string"}
            }
        },
        "services.FriendUpdate": {
            "type": "object",
            "properties": {
                "avatar": {"type": "string"}, "nickname": {"type": "string"}, "remark": {"type": "string"},
                "realname": {"type": "string"}, "signature": {"type": "string"}, "persona": {"type": "string"},
                "pokeSuffix": {"type": "string"}, "group": {"type": "string"}
            }
        },
        "services.SendResult": {
            "type": "object",
            "properties": {
                "reply": {"$ref": "#/definitions/domain.Message"},
                "tokenStats": {"$ref": "#/definitions/domain.TokenStats"}
            }
        },
        "domain.Friend": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "friendCode": {"type": "string"}, "avatar": {"type": "string"},
                "nickname": {"type": "string"}, "remark": {"type": "string"}, "realname": {"type": "string"},
                "signature": {"type": "string"}, "persona": {"type": "string"}, "pokeSuffix": {"type": "string"},
                "group": {"type": "string"}, "addSource": {"type": "string"}, "seq": {"type": "integer"},
                "createTime": {"type": "string"}
            }
        },
        "domain.Group": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "name": {"type": "string"}, "isDefault": {"type": "boolean"},
                "order": {"type": "integer"}, "createTime": {"type": "string"}
            }
        },
        "domain.FriendCode": {
            "type": "object",
            "properties": {
                "code": {"type": "string"}, "nickname": {"type": "string"}, "createTime": {"type": "string"},
                "deletion": {"type": "object", "properties": {"at": {"type": "string"}}}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {"type": {"type": "string"}, "text": {"type": "string"}, "timestamp": {"type": "string"}}
        },
        "domain.TokenStats": {
            "type": "object",
            "properties": {
                "worldBook": {"type": "integer"}, "persona": {"type": "integer"}, "chatHistory": {"type": "integer"},
                "input": {"type": "integer"}, "output": {"type": "integer"}, "total": {"type": "integer"},
                "lastUpdate": {"type": "string"}
            }
        },
        "domain.APIConfig": {
            "type": "object",
            "properties": {
                "provider": {"type": "string"}, "endpoint": {"type": "string"}, "apiKey": {"type": "string"},
                "model": {"type": "string"}, "maxTokens": {"type": "integer"}, "temperature": {"type": "number"}
            }
        },
        "domain.ExportDocument": {
            "type": "object",
            "properties": {
                "version": {"type": "string"}, "exportTime": {"type": "string"}, "type": {"type": "string"},
                "friends": {"type": "array", "items": {"$ref": "#/definitions/domain.Friend"}},
                "friendGroups": {"type": "array", "items": {"$ref": "#/definitions/domain.Group"}},
                "friendCodes": {"type": "array", "items": {"$ref": "#/definitions/domain.FriendCode"}},
                "chats": {"type": "array", "items": {"type": "object"}},
                "memories": {"type": "array", "items": {"type": "object"}},
                "userSettings": {"type": "object"},
                "apiConfig": {"$ref": "#/definitions/domain.APIConfig"},
                "apiPresets": {"type": "array", "items": {"type": "object"}},
                "voiceConfig": {"type": "object"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Companion Store API",
	Description:      "Persistence and AI-exchange backend for a simulated-phone companion chat app.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
