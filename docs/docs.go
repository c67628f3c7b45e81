// Package docs は /swagger で配信する API 定義（swag の出力形式）。
// handler の godoc 注釈を変えたらここも合わせる。ルートとの突き合わせは cmd/serve_test.go
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "ログイン（JWT 発行）",
                "parameters": [
                    {"description": "username or e-mail / password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/register": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "アカウント登録（admin）",
                "parameters": [
                    {"description": "account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.RegisterRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}
            }
        },
        "/auth/accounts/{username}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "アカウント削除（admin）",
                "parameters": [
                    {"type": "string", "description": "username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/devices": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス一覧",
                "parameters": [
                    {"type": "string", "description": "checked_out|checked_in|broken|missing", "name": "status", "in": "query"},
                    {"type": "string", "description": "excellent|scratched|broken|missing", "name": "condition", "in": "query"},
                    {"type": "integer", "description": "lendee id", "name": "lendee_id", "in": "query"},
                    {"type": "string", "description": "name / serial number", "name": "q", "in": "query"},
                    {"type": "integer", "description": "default 50", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"},
                    {"type": "string", "description": "asc|desc", "name": "order", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.DeviceListResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス登録",
                "parameters": [
                    {"description": "device", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.CreateDeviceRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/devices.DeviceResponse"}}}
            }
        },
        "/devices/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "tags": ["devices"],
                "summary": "デバイス一覧の CSV",
                "parameters": [
                    {"type": "string", "description": "utf8|cp932", "name": "encoding", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/devices/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス詳細",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.DeviceResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/devices.errDTO"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス編集（PUT は JSON、/edit はフォーム）",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true},
                    {"description": "変更するフィールドのみ", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.UpdateDeviceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.DeviceResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/devices.errDTO"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "一覧画面の削除ボタン（AJAX）から呼ばれる。存在しなくても成功を返す",
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス削除",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}}
            }
        },
        "/devices/{id}/edit": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス編集（PUT は JSON、/edit はフォーム）",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true},
                    {"description": "変更するフィールドのみ", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.UpdateDeviceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.DeviceResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/devices.errDTO"}}}
            }
        },
        "/devices/{id}/delete": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "一覧画面の削除ボタン（AJAX）から呼ばれる。存在しなくても成功を返す",
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "デバイス削除",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}}
            }
        },
        "/devices/{id}/comments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "返却時コメント一覧",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.CommentListResponse"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/devices.errDTO"}}}
            }
        },
        "/devices/{id}/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "変更履歴",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.RevisionListResponse"}}}
            }
        },
        "/devices/{id}/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "貸出先の解決（確認前）",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true},
                    {"description": "lendee", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.CheckoutRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.CheckoutResponse"}}}
            }
        },
        "/devices/{id}/checkout/confirm": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "貸出の確定",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true},
                    {"description": "lendee", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.CheckoutRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/devices/{id}/checkin": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["checkin"],
                "summary": "返却",
                "parameters": [
                    {"type": "integer", "description": "device id", "name": "id", "in": "path", "required": true},
                    {"description": "condition / comment", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/devices.CheckinRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/devices.DeviceResponse"}}}
            }
        }
    },
    "definitions": {
        "auth.LoginRequest": {
            "type": "object",
            "required": ["id", "password"],
            "properties": {"id": {"type": "string"}, "password": {"type": "string"}}
        },
        "auth.RegisterRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "email": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "staff", "user"]}
            }
        },
        "devices.CreateDeviceRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "serial_number": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["checked_in", "broken", "missing"]},
                "condition": {"type": "string", "enum": ["excellent", "scratched", "broken", "missing"]}
            }
        },
        "devices.UpdateDeviceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "serial_number": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["checked_in", "broken", "missing"]},
                "condition": {"type": "string", "enum": ["excellent", "scratched", "broken", "missing"]}
            }
        },
        "devices.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "devices.errDTO": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/devices.APIError"}}
        },
        "devices.CommentResponse": {
            "type": "object",
            "properties": {
                "comment_ulid": {"type": "string"},
                "text": {"type": "string"},
                "author_id": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "devices.CommentListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/devices.CommentResponse"}}}
        },
        "devices.DeviceSnapshot": {
            "type": "object",
            "properties": {
                "device_id": {"type": "integer"},
                "name": {"type": "string"},
                "serial_number": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string"},
                "condition": {"type": "string"},
                "lendee_id": {"type": "integer"},
                "lender_id": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "devices.RevisionResponse": {
            "type": "object",
            "properties": {
                "revision_ulid": {"type": "string"},
                "action": {"type": "string", "enum": ["created", "updated", "checked_out", "checked_in", "deleted"]},
                "snapshot": {"$ref": "#/definitions/devices.DeviceSnapshot"},
                "actor_id": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "devices.RevisionListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/devices.RevisionResponse"}}}
        },
        "devices.CheckoutRequest": {
            "type": "object",
            "properties": {"lendee": {"type": "string"}}
        },
        "devices.CheckoutResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "name": {"type": "string"}, "created_subject": {"type": "boolean"}}
        },
        "devices.CheckinRequest": {
            "type": "object",
            "required": ["condition"],
            "properties": {
                "condition": {"type": "string", "enum": ["excellent", "scratched", "broken", "missing"]},
                "comment": {"type": "string"}
            }
        },
        "devices.LendeeResponse": {
            "type": "object",
            "properties": {"lendee_id": {"type": "integer"}, "kind": {"type": "string"}, "name": {"type": "string"}}
        },
        "devices.LenderResponse": {
            "type": "object",
            "properties": {"user_id": {"type": "integer"}, "username": {"type": "string"}, "name": {"type": "string"}}
        },
        "devices.DeviceResponse": {
            "type": "object",
            "properties": {
                "device_id": {"type": "integer"},
                "name": {"type": "string"},
                "serial_number": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string"},
                "status_label": {"type": "string"},
                "condition": {"type": "string"},
                "condition_label": {"type": "string"},
                "lendee": {"$ref": "#/definitions/devices.LendeeResponse"},
                "lender": {"$ref": "#/definitions/devices.LenderResponse"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "devices.DeviceListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/devices.DeviceResponse"}},
                "total": {"type": "integer"},
                "next_offset": {"type": "integer"}
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Inventory API",
	Description:      "Device inventory: checkout / checkin / CRUD",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
