package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Proctor API",
        "description": "Exam proctoring assignment engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Assignments", "description": "Proctor assignment, swap and cancellation"},
        {"name": "Responses", "description": "Assistant responses and assignment lists"}
    ],
    "paths": {
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign proctors to an exam",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignProctorsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/{id}/response": {
            "post": {
                "tags": ["Responses"],
                "summary": "Accept or reject a proctoring assignment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{examId}/swap": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Swap a proctor on an exam",
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{examId}/assignments": {
            "delete": {
                "tags": ["Assignments"],
                "summary": "Cancel all assignments for an exam",
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{examId}/roster": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Get the proctoring roster for an exam",
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/{examId}/roster/export": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Export the proctoring roster as CSV or PDF",
                "parameters": [
                    {"name": "examId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/assistants/{assistantId}/assignments": {
            "get": {
                "tags": ["Responses"],
                "summary": "List an assistant's proctoring assignments",
                "parameters": [
                    {"name": "assistantId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AssignProctorsRequest": {
            "type": "object",
            "properties": {
                "exam_id": {"type": "string"},
                "course_id": {"type": "string"},
                "course_code": {"type": "string"},
                "department": {"type": "string"},
                "date": {"type": "string"},
                "grad_course": {"type": "boolean"},
                "manual_assistant_ids": {"type": "array", "items": {"type": "string"}},
                "required_count": {"type": "integer"},
                "prioritize_course_assistants": {"type": "boolean"},
                "auto_assign_remaining": {"type": "boolean"},
                "check_leave_requests": {"type": "boolean"},
                "strict_leave_check": {"type": "boolean"},
                "department_filter": {"type": "string"}
            },
            "required": ["required_count"]
        },
        "RespondRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["accept", "reject"]}
            },
            "required": ["decision"]
        },
        "SwapRequest": {
            "type": "object",
            "properties": {
                "outgoing_assistant_id": {"type": "string"},
                "incoming_assistant_id": {"type": "string"},
                "mode": {"type": "string", "enum": ["immediate", "requested"]}
            },
            "required": ["outgoing_assistant_id", "incoming_assistant_id", "mode"]
        },
        "ProctoringAssignment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "exam_id": {"type": "string"},
                "assistant_id": {"type": "string"},
                "status": {"type": "string"},
                "is_manual": {"type": "boolean"},
                "assigned_by": {"type": "string"},
                "assigned_at": {"type": "string"},
                "responded_at": {"type": "string"}
            }
        },
        "AssignmentWarnings": {
            "type": "object",
            "properties": {
                "offering_conflicts": {"type": "integer"},
                "offering_course_exam_conflicts": {"type": "integer"},
                "proctoring_conflicts": {"type": "integer"},
                "on_leave": {"type": "integer"},
                "consecutive_day_demotions": {"type": "integer"},
                "manual_dropped": {"type": "integer"},
                "shortfall": {"type": "integer"},
                "messages": {"type": "array", "items": {"type": "string"}}
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
                "pagination": {"type": "object"},
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
