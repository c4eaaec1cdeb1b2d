package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heraerp/hera/internal/guardrail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidateFromStdin(t *testing.T) {
	var out bytes.Buffer
	stdin := strings.NewReader(`{"organization_id":"o","entity_type":"customer","entity_name":"Acme","smart_code":"BAD_CODE"}`)

	err := runValidate(stdin, &out, validateOptions{table: guardrail.TableEntities, operation: "create", payload: "-"})
	require.NoError(t, err)

	var res validateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, guardrail.CodeInvalidSmartCode, res.Warnings[0].Code)
}

func TestRunValidateInvalidExitsWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"organization_id": 42}`), 0o600))

	var out bytes.Buffer
	err := runValidate(nil, &out, validateOptions{table: "core_clients", operation: "insert", payload: path})
	assert.ErrorIs(t, err, errInvalid)

	var res validateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.False(t, res.Valid)
	require.NotNil(t, res.AutoFix)
	assert.Equal(t, guardrail.TableEntities, res.AutoFix.Table)
}

func TestRunValidateAutoFix(t *testing.T) {
	var out bytes.Buffer
	stdin := strings.NewReader(`{"organization_id":"o","source_entity_id":"1","target_entity_id":"2"}`)

	err := runValidate(stdin, &out, validateOptions{table: guardrail.TableRelationships, operation: "create", payload: "-", autoFix: true})
	require.NoError(t, err)

	var res validateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Valid)
	require.NotNil(t, res.FixedRequest)
	assert.Equal(t, "1", res.FixedRequest.Payload["from_entity_id"])
}

func TestReadPayloadRejectsMalformedJSON(t *testing.T) {
	_, err := readPayload(strings.NewReader("{"), "-")
	assert.Error(t, err)

	payload, err := readPayload(nil, "")
	require.NoError(t, err)
	assert.Empty(t, payload)
}
