package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/heraerp/hera/internal/guardrail"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	table     string
	operation string
	payload   string
	autoFix   bool
}

type validateOutput struct {
	guardrail.Result
	FixedRequest *guardrail.Request `json:"fixed_request,omitempty"`
}

func newValidateCmd() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a request against the six-table convention",
		Long: `Validates a {table, operation, payload} request and prints the result as JSON.
The payload is read from a file, or from stdin when --payload is "-".
Exits non-zero when the request is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.table, "table", "", "target table")
	cmd.Flags().StringVar(&opts.operation, "operation", "create", "create, update, query or delete")
	cmd.Flags().StringVar(&opts.payload, "payload", "", "payload JSON file, or - for stdin")
	cmd.Flags().BoolVar(&opts.autoFix, "autofix", false, "apply the suggested fix and validate again")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func runValidate(stdin io.Reader, stdout io.Writer, opts validateOptions) error {
	payload, err := readPayload(stdin, opts.payload)
	if err != nil {
		return err
	}

	req := guardrail.Request{
		Table:     strings.TrimSpace(opts.table),
		Operation: opts.operation,
		Payload:   payload,
	}

	var out validateOutput
	if opts.autoFix {
		fixed, res, applied := guardrail.FixAndValidate(req)
		out.Result = res
		if applied {
			out.FixedRequest = &fixed
		}
	} else {
		out.Result = guardrail.Validate(req)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !out.Valid {
		return errInvalid
	}
	return nil
}

func readPayload(stdin io.Reader, source string) (guardrail.Payload, error) {
	var raw []byte
	var err error
	switch strings.TrimSpace(source) {
	case "":
		return guardrail.Payload{}, nil
	case "-":
		raw, err = io.ReadAll(stdin)
	default:
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return guardrail.Payload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload guardrail.Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload == nil {
		payload = guardrail.Payload{}
	}
	return payload, nil
}
