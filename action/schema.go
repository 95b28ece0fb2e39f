/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package action

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema for the wire payload, for embedding in
// model prompts so responses conform to what Parse accepts.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	return r.Reflect(&wirePayload{})
}

// SchemaJSON returns the wire payload schema as indented JSON text.
func SchemaJSON() (string, error) {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
