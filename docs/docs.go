// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/curator_api/main.go
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
        "/records/ingest": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Ingest a batch of raw records",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.IngestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.IngestResponse"}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/records/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Get a record",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "content", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.Record"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/records/{id}/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["records"],
                "summary": "Summarize an extracted record",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/summary.Summary"}},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/extraction/passes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["extraction"],
                "summary": "Run an extraction pass",
                "parameters": [
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ExtractionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/extraction.DrainResult"}},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/extraction/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["extraction"],
                "summary": "Count records per extraction status",
                "parameters": [
                    {"type": "integer", "name": "windowHours", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StatusResponse"}}
                }
            }
        },
        "/extraction/reset": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["extraction"],
                "summary": "Reset permanently failed records",
                "parameters": [
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.WindowRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ResetResponse"}}
                }
            }
        },
        "/selections": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["selection"],
                "summary": "Select the digest candidates",
                "parameters": [
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.SelectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SelectionResponse"}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/retention/sweep": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["retention"],
                "summary": "Delete old records",
                "parameters": [
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.SweepRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SweepResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ExtractionRequest": {
            "type": "object",
            "properties": {
                "drain": {"type": "boolean"},
                "maxAttempts": {"type": "integer"},
                "maxBatch": {"type": "integer"},
                "maxPasses": {"type": "integer"},
                "windowHours": {"type": "integer"}
            }
        },
        "dto.IngestRequest": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/record.RawRecord"}}
            }
        },
        "dto.IngestResponse": {
            "type": "object",
            "properties": {
                "ids": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "dto.Record": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "content": {"type": "string"},
                "discoveredAt": {"type": "string"},
                "extractionAttempts": {"type": "integer"},
                "id": {"type": "integer"},
                "lastError": {"type": "string"},
                "nextEligibleAt": {"type": "string"},
                "publishedAt": {"type": "string"},
                "selection": {"$ref": "#/definitions/record.Selection"},
                "sourceName": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "ok", "failed_transient", "failed_permanent", "skipped"]},
                "title": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "dto.ResetResponse": {
            "type": "object",
            "properties": {"reset": {"type": "integer"}}
        },
        "dto.SelectionRequest": {
            "type": "object",
            "properties": {
                "finalSize": {"type": "integer"},
                "perSourceCap": {"type": "integer"},
                "windowHours": {"type": "integer"}
            }
        },
        "dto.SelectionResponse": {
            "type": "object",
            "properties": {
                "candidates": {"type": "integer"},
                "records": {"type": "array", "items": {"$ref": "#/definitions/dto.Record"}},
                "runId": {"type": "string"}
            }
        },
        "dto.StatusResponse": {
            "type": "object",
            "properties": {
                "counts": {"type": "object", "additionalProperties": {"type": "integer"}},
                "windowHours": {"type": "integer"}
            }
        },
        "dto.SweepRequest": {
            "type": "object",
            "properties": {"olderThanHours": {"type": "integer"}}
        },
        "dto.SweepResponse": {
            "type": "object",
            "properties": {"deleted": {"type": "integer"}}
        },
        "dto.WindowRequest": {
            "type": "object",
            "properties": {"windowHours": {"type": "integer"}}
        },
        "extraction.DrainResult": {
            "type": "object",
            "properties": {
                "passes": {"type": "integer"},
                "total": {"$ref": "#/definitions/extraction.PassResult"}
            }
        },
        "extraction.PassResult": {
            "type": "object",
            "properties": {
                "attempted": {"type": "integer"},
                "failed": {"type": "integer"},
                "passId": {"type": "string"},
                "skipped": {"type": "integer"},
                "succeeded": {"type": "integer"}
            }
        },
        "record.RawRecord": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "publishedAt": {"type": "string"},
                "sourceName": {"type": "string"},
                "title": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "record.Selection": {
            "type": "object",
            "properties": {
                "importanceScore": {"type": "number"},
                "rank": {"type": "integer"},
                "selectionReason": {"type": "string"}
            }
        },
        "summary.Summary": {
            "type": "object",
            "properties": {
                "bullets": {"type": "array", "items": {"type": "string"}},
                "one_liner": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "News Digest Curator API",
	Description:      "Ingests discovered articles, retrieves their content with retries and selects the daily digest",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
