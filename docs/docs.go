package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Lark Relay",
    "description": "Relays Lark chat messages to an LLM completion API and posts the answer back",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {
      "get": {
        "tags": ["health"],
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/webhook": {
      "post": {
        "tags": ["webhook"],
        "summary": "Lark event callback",
        "description": "Receives url_verification handshakes and im.message.receive_v1 events. Message events are acknowledged with 200 even when relaying fails. A 400 (body not JSON, or no event) is final for that payload: nothing is relayed, and a redelivery of the same body gets the same 400.",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [
          {"name": "X-Lark-Verification-Token", "in": "header", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
        ],
        "responses": {
          "200": {"description": "acknowledged, or challenge echoed for url_verification"},
          "400": {"description": "body is not JSON or has no event; final, a redelivered copy gets the same 400"},
          "401": {"description": "verification token mismatch"}
        }
      }
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
