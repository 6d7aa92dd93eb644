// Package docs регистрирует OpenAPI-описание HTTP API для swagger UI.
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
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Журнал заказов",
                "parameters": [
                    {"type": "string", "description": "Статусы через запятую", "name": "status", "in": "query"},
                    {"type": "string", "description": "Телефон покупателя", "name": "phone", "in": "query"},
                    {"type": "string", "description": "RFC3339, включительно", "name": "created_from", "in": "query"},
                    {"type": "string", "description": "RFC3339, не включительно", "name": "created_to", "in": "query"},
                    {"type": "string", "description": "create_date | total_price | last_status_update_date", "name": "sort_by", "in": "query"},
                    {"type": "boolean", "description": "Сортировка по убыванию", "name": "sort_desc", "in": "query"},
                    {"type": "integer", "description": "Смещение", "name": "skip", "in": "query"},
                    {"type": "integer", "description": "Размер страницы, не больше 100", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Резервирует конкретные варианты товаров и создаёт заказ в статусе CREATED",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Создание заказа",
                "parameters": [
                    {"description": "Заказ", "name": "order", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Товар не найден", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Товар уже продан", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/webhook/payment": {
            "post": {
                "description": "Сырое тело сохраняется в архив, статус счёта переводит заказ в PAID или FAILED",
                "consumes": ["application/json"],
                "tags": ["orders"],
                "summary": "Уведомление платёжного провайдера",
                "parameters": [
                    {"description": "Уведомление", "name": "notification", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/by-invoice/{invoiceID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Заказ по id платёжного счёта",
                "parameters": [
                    {"type": "string", "description": "ID счёта", "name": "invoiceID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Заказ по id",
                "parameters": [
                    {"type": "string", "description": "ID заказа", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/{id}/status": {
            "patch": {
                "description": "Переход в FAILED возвращает зарезервированные варианты на склад",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Смена статуса заказа",
                "parameters": [
                    {"type": "string", "description": "ID заказа", "name": "id", "in": "path", "required": true},
                    {"description": "Новый статус", "name": "status", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/{id}/cancel": {
            "post": {
                "tags": ["orders"],
                "summary": "Отмена заказа покупателем",
                "parameters": [
                    {"type": "string", "description": "ID заказа", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Заказ уже оплачен или завершён", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/orders/{id}/invoice": {
            "put": {
                "consumes": ["application/json"],
                "tags": ["orders"],
                "summary": "Привязка платёжного счёта",
                "parameters": [
                    {"type": "string", "description": "ID заказа", "name": "id", "in": "path", "required": true},
                    {"description": "Счёт", "name": "invoice", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Витринная информация о товарах",
                "parameters": [
                    {"type": "string", "description": "ID товаров через запятую", "name": "ids", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Создаёт товар с начальным набором вариантов. Вариантам без SKU он генерируется",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Заведение товара",
                "parameters": [
                    {"description": "Товар", "name": "product", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Товар с доступными вариантами",
                "parameters": [
                    {"type": "string", "description": "ID товара", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/rates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["rates"],
                "summary": "Текущий снимок курсов валют",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "description": "rates[c] — цена одной единицы c в базовой валюте",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rates"],
                "summary": "Публикация снимка курсов",
                "parameters": [
                    {"description": "Курсы", "name": "rates", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
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
	Title:            "Shop backend API",
	Description:      "Резервирование товаров и жизненный цикл заказов",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
