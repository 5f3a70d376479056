package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Blog API",
        "description": "CRUD blog backend: auth, users, categories, posts",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type \"Bearer\" followed by a space and the access token."
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Register, login and refresh-token rotation"},
        {"name": "Users", "description": "User management and avatar upload"},
        {"name": "Categories", "description": "Post categories"},
        {"name": "Posts", "description": "Blog posts with thumbnails and export"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Dependency unavailable"}
                }
            }
        },
        "/uploads/{filepath}": {
            "get": {
                "tags": ["Ops"],
                "summary": "Serve uploaded file",
                "parameters": [
                    {"name": "filepath", "in": "path", "required": true, "type": "string", "description": "Relative file path, e.g. avatar/123.png"}
                ],
                "responses": {
                    "200": {"description": "File contents"},
                    "404": {"description": "File not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already exists"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "201": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "User Not Found"}
                }
            }
        },
        "/auth/refresh-token": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "New token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Refresh Token is not valid"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "List users",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "items_per_page", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Create user",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already exists"}
                }
            }
        },
        "/users/profile": {
            "get": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/upload-avatar": {
            "post": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Upload avatar",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "avatar", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Wrong extension or file too large"}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Get user",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Update user",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Users"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete user with cascade",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/categories": {
            "get": {
                "tags": ["Categories"],
                "security": [{"BearerAuth": []}],
                "summary": "List categories",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "items_per_page", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Categories"],
                "security": [{"BearerAuth": []}],
                "summary": "Create category",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/categories/{id}": {
            "get": {
                "tags": ["Categories"],
                "security": [{"BearerAuth": []}],
                "summary": "Get category",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Categories"],
                "security": [{"BearerAuth": []}],
                "summary": "Update category",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Categories"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete category with cascade",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/posts": {
            "get": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "List posts",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "items_per_page", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "string"},
                    {"name": "user_id", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "Create post",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "description", "in": "formData", "type": "string", "required": true},
                    {"name": "category_id", "in": "formData", "type": "string", "required": true},
                    {"name": "thumbnail", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "404": {"description": "Category not found"}
                }
            }
        },
        "/posts/export": {
            "get": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "Export posts as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {"200": {"description": "Rendered document"}}
            }
        },
        "/posts/{id}": {
            "get": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "Get post",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "Update post",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Posts"],
                "security": [{"BearerAuth": []}],
                "summary": "Delete post",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "first_name", "last_name"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "currentPage": {"type": "integer"},
                "nextPage": {"type": "integer"},
                "prevPage": {"type": "integer"},
                "lastPage": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
