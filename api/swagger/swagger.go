package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Absence Alerts API",
        "description": "Detects prolonged student absence streaks and prepares parent notifications",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "AbsenceAlerts", "description": "Absence streak detection and parent notifications"},
        {"name": "System", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Dependency unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["System"],
                "summary": "Process counters snapshot",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/absence-alerts/evaluate": {
            "post": {
                "tags": ["AbsenceAlerts"],
                "summary": "Evaluate absence alerts from inline tables",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/EvaluateAlertsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Notification rows", "schema": {"$ref": "#/definitions/AlertsEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Missing column or invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/absence-alerts/upload": {
            "post": {
                "tags": ["AbsenceAlerts"],
                "summary": "Evaluate absence alerts from uploaded CSV or XLSX files",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "formData", "name": "attendance", "type": "file", "required": true},
                    {"in": "formData", "name": "students", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "Notification rows", "schema": {"$ref": "#/definitions/AlertsEnvelope"}},
                    "400": {"description": "Missing or oversized file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Missing column or invalid date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/absence-alerts": {
            "get": {
                "tags": ["AbsenceAlerts"],
                "summary": "Evaluate absence alerts from stored attendance",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "classId", "type": "string"},
                    {"in": "query", "name": "studentId", "type": "string"},
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Notification rows", "schema": {"$ref": "#/definitions/AlertsEnvelope"}}
                }
            }
        },
        "/api/v1/absence-alerts/cache": {
            "delete": {
                "tags": ["AbsenceAlerts"],
                "summary": "Drop cached store evaluations (ADMIN, SUPERADMIN)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Cache cleared"},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/absence-alerts/exports": {
            "post": {
                "tags": ["AbsenceAlerts"],
                "summary": "Queue an absence alert export",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/absence-alerts/exports/{id}": {
            "get": {
                "tags": ["AbsenceAlerts"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/export/{token}": {
            "get": {
                "tags": ["AbsenceAlerts"],
                "summary": "Download a finished export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"in": "path", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AttendanceRow": {
            "type": "object",
            "required": ["student_id", "attendance_date"],
            "properties": {
                "student_id": {"type": "string"},
                "attendance_date": {"type": "string", "format": "date"},
                "status": {"type": "string", "example": "Absent"}
            }
        },
        "Student": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "student_name": {"type": "string"},
                "parent_email": {"type": "string"}
            }
        },
        "EvaluateAlertsRequest": {
            "type": "object",
            "properties": {
                "attendance": {"type": "array", "items": {"$ref": "#/definitions/AttendanceRow"}},
                "students": {"type": "array", "items": {"$ref": "#/definitions/Student"}},
                "min_absent_days": {"type": "integer", "minimum": 1}
            }
        },
        "NotificationRow": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "absence_start_date": {"type": "string", "format": "date"},
                "absence_end_date": {"type": "string", "format": "date"},
                "total_absent_days": {"type": "integer"},
                "email": {"type": "string", "x-nullable": true},
                "msg": {"type": "string", "x-nullable": true}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "classId": {"type": "string"},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "format": {"type": "string", "enum": ["csv", "xlsx", "pdf"]}
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
        "AlertsEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/NotificationRow"}},
                "meta": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
