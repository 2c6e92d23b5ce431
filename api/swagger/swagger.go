package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Enrollments API",
        "description": "Course enrollment management: admission, listing, lifecycle and self-enrollment",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Token issuance and rotation"},
        {"name": "Enrollments", "description": "Course enrollment admission, listing and lifecycle"},
        {"name": "Observability", "description": "Runtime metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Revoked"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/courses/{course_id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List course enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "course_id", "in": "path", "required": true, "type": "string"},
                    {"name": "type[]", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "role[]", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "state[]", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "per_page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not authorized to read the roster"}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a user in a course",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "course_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Admission rejected"},
                    "403": {"description": "Not authorized"}
                }
            }
        },
        "/courses/{course_id}/enrollments/{id}": {
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Conclude or delete an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "course_id", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "task", "in": "query", "type": "string", "enum": ["conclude", "delete"], "default": "conclude"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid state change"},
                    "404": {"description": "Enrollment not found"}
                }
            }
        },
        "/courses/{course_id}/enrollments/export": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Export the course roster",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "course_id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Rendered roster document"},
                    "403": {"description": "Not authorized or export disabled"}
                }
            }
        },
        "/sections/{section_id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List section enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "section_id", "in": "path", "required": true, "type": "string"},
                    {"name": "type[]", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "role[]", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "state[]", "in": "query", "type": "array", "items": {"type": "string"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a user in a section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "section_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{user_id}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a user's enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "user_id", "in": "path", "required": true, "type": "string", "description": "User ID or the literal self"},
                    {"name": "state[]", "in": "query", "type": "array", "items": {"type": "string"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not authorized to read this user's enrollments"}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Observability"],
                "summary": "Runtime metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Admin only"}
                }
            }
        }
    },
    "definitions": {
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
        "CreateEnrollmentRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "type": {"type": "string"},
                "role": {"type": "string"},
                "enrollment_state": {"type": "string", "enum": ["invited", "active"]},
                "course_section_id": {"type": "string"},
                "limit_privileges_to_course_section": {"type": "boolean"},
                "notify": {"type": "boolean"},
                "self_enrollment_code": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
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
