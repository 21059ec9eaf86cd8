package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const answerSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"voters": {"type": ["array", "null"], "items": {"type": "string"}}
	},
	"required": ["name"]
}`

var (
	createPollSchema = mustCompile("create-poll", `{
		"type": "object",
		"properties": {
			"question": {"type": "string"},
			"answers": {"type": "array", "items": `+answerSchema+`, "maxItems": 100},
			"isSingleChoice": {"type": "boolean"},
			"skippable": {"type": "boolean"},
			"isApprovalPoll": {"type": "boolean"},
			"senderId": {"type": "string"},
			"participants": {"type": ["array", "null"], "items": {"type": "string"}}
		},
		"required": ["question", "answers", "senderId"]
	}`)

	updatePollSchema = mustCompile("update-poll", `{
		"type": "object",
		"properties": {
			"question": {"type": "string"},
			"answers": {"type": "array", "items": `+answerSchema+`, "maxItems": 100},
			"isSingleChoice": {"type": "boolean"},
			"skippable": {"type": "boolean"},
			"isApprovalPoll": {"type": "boolean"}
		},
		"required": ["question", "answers"]
	}`)

	voteSchema = mustCompile("vote", `{
		"type": "object",
		"properties": {
			"voterId": {"type": "string", "minLength": 1},
			"choice": {"type": ["array", "null"], "items": {"type": "boolean"}}
		},
		"required": ["voterId", "choice"]
	}`)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://premeet.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return c.MustCompile(url)
}

// decodeValidated checks the body against schema before decoding it into v.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := schema.Validate(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}
