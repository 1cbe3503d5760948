package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "QA Loader API",
        "description": "Bulk ingestion service loading markdown question banks into Postgres",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Upload", "description": "Direct markdown upload into the question bank"},
        {"name": "Duplicates", "description": "Similarity detection across the stored corpus"},
        {"name": "Staging", "description": "Review-before-import workflow for uploaded batches"}
    ],
    "paths": {
        "/upload/validate": {
            "post": {
                "tags": ["Upload"],
                "summary": "Validate a markdown file without uploading",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ValidationReport"}},
                    "400": {"description": "Missing, oversized or badly encoded file", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/upload": {
            "post": {
                "tags": ["Upload"],
                "summary": "Upload a markdown file directly into the question bank",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "uploaded_by", "in": "formData", "type": "string"},
                    {"name": "uploaded_on", "in": "formData", "type": "string"},
                    {"name": "upload_notes", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Per-question outcome", "schema": {"$ref": "#/definitions/BatchUploadResult"}},
                    "400": {"description": "No valid question blocks", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/upload/duplicates": {
            "post": {
                "tags": ["Upload"],
                "summary": "Compare a markdown file against the stored corpus",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "threshold", "in": "formData", "type": "number"}
                ],
                "responses": {
                    "200": {"description": "Flagged candidates", "schema": {"$ref": "#/definitions/DuplicateReport"}}
                }
            }
        },
        "/duplicates/scan": {
            "get": {
                "tags": ["Duplicates"],
                "summary": "Scan the whole corpus for near-duplicate questions",
                "parameters": [
                    {"name": "threshold", "in": "query", "type": "number"}
                ],
                "responses": {
                    "200": {"description": "Duplicate groups", "schema": {"$ref": "#/definitions/DuplicateScanResult"}}
                }
            }
        },
        "/duplicates/check": {
            "post": {
                "tags": ["Duplicates"],
                "summary": "Compare specific stored questions against the rest of the corpus",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckDuplicatesRequest"}}
                ],
                "responses": {
                    "200": {"description": "Duplicate groups", "schema": {"$ref": "#/definitions/DuplicateScanResult"}}
                }
            }
        },
        "/staging/upload": {
            "post": {
                "tags": ["Staging"],
                "summary": "Upload a markdown file into the staging area for review",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "uploaded_by", "in": "formData", "type": "string"},
                    {"name": "uploaded_on", "in": "formData", "type": "string"},
                    {"name": "upload_notes", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Batch created", "schema": {"$ref": "#/definitions/StagingUploadResult"}}
                }
            }
        },
        "/staging/batches": {
            "get": {
                "tags": ["Staging"],
                "summary": "List upload batches",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "reviewing", "completed", "cancelled"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staging/batches/{batchId}": {
            "get": {
                "tags": ["Staging"],
                "summary": "Get an upload batch with its staged questions",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected", "duplicate", "imported"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BatchDetail"}},
                    "404": {"description": "Unknown batch", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "delete": {
                "tags": ["Staging"],
                "summary": "Cancel an upload batch",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "409": {"description": "Batch already completed", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/staging/batches/{batchId}/duplicates": {
            "post": {
                "tags": ["Staging"],
                "summary": "Flag staged questions that resemble stored ones",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/DetectDuplicatesRequest"}}
                ],
                "responses": {
                    "200": {"description": "Flagged staged questions", "schema": {"$ref": "#/definitions/StagingDuplicatesResult"}}
                }
            }
        },
        "/staging/batches/{batchId}/review": {
            "post": {
                "tags": ["Staging"],
                "summary": "Approve or reject staged questions",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated staged questions", "schema": {"$ref": "#/definitions/ReviewResult"}}
                }
            }
        },
        "/staging/batches/{batchId}/import": {
            "post": {
                "tags": ["Staging"],
                "summary": "Import approved staged questions into the question bank",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ImportRequest"}}
                ],
                "responses": {
                    "200": {"description": "Import outcome", "schema": {"$ref": "#/definitions/ImportResult"}},
                    "409": {"description": "Nothing approved or wrong batch status", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "ValidationReport": {
            "type": "object",
            "properties": {
                "is_valid": {"type": "boolean"},
                "parsed_count": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "blocks": {"type": "array", "items": {"type": "object"}}
            }
        },
        "BatchUploadResult": {
            "type": "object",
            "properties": {
                "total_attempted": {"type": "integer"},
                "successful_uploads": {"type": "array", "items": {"type": "string"}},
                "failed_uploads": {"type": "array", "items": {"type": "string"}},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "processing_time_ms": {"type": "integer"}
            }
        },
        "CheckDuplicatesRequest": {
            "type": "object",
            "properties": {
                "question_ids": {"type": "array", "items": {"type": "string"}},
                "threshold": {"type": "number"}
            },
            "required": ["question_ids"]
        },
        "DuplicateReport": {
            "type": "object",
            "properties": {
                "threshold": {"type": "number"},
                "candidates": {"type": "integer"},
                "flagged": {"type": "integer"},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "DuplicateScanResult": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "threshold": {"type": "number"},
                "groups": {"type": "array", "items": {"type": "object"}}
            }
        },
        "StagingUploadResult": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "file_name": {"type": "string"},
                "total_staged": {"type": "integer"},
                "question_ids": {"type": "array", "items": {"type": "string"}},
                "duplicates_flagged": {"type": "integer"},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "processing_time_ms": {"type": "integer"}
            }
        },
        "BatchDetail": {
            "type": "object",
            "properties": {
                "batch": {"type": "object"},
                "questions": {"type": "array", "items": {"type": "object"}}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "question_ids": {"type": "array", "items": {"type": "string"}},
                "reviewed_by": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["action", "question_ids"]
        },
        "ReviewResult": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "updated": {"type": "array", "items": {"type": "string"}},
                "count": {"type": "integer"}
            }
        },
        "DetectDuplicatesRequest": {
            "type": "object",
            "properties": {
                "threshold": {"type": "number"}
            }
        },
        "StagingDuplicatesResult": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "threshold": {"type": "number"},
                "flagged": {"type": "array", "items": {"type": "string"}},
                "count": {"type": "integer"}
            }
        },
        "ImportRequest": {
            "type": "object",
            "properties": {
                "imported_by": {"type": "string"}
            }
        },
        "ImportResult": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "imported": {"type": "array", "items": {"type": "string"}},
                "failed": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"}
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
