package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/wippyai/wrap-client/client"
	"github.com/wippyai/wrap-client/codec"
)

func newInvokeCmd(a *app) *cobra.Command {
	var argsJSON, envJSON string
	var sets []string
	var raw bool

	cmd := &cobra.Command{
		Use:   "invoke <uri> <method>",
		Short: "Invoke a method and print its result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			env, err := applyEnvSets(envJSON, sets)
			if err != nil {
				return err
			}
			out, err := invoke(cmd.Context(), a.client, args[0], args[1], argsJSON, env)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), out, raw)
		},
	}
	cmd.Flags().StringVarP(&argsJSON, "args", "a", "", "arguments as a JSON value")
	cmd.Flags().StringVarP(&envJSON, "env", "e", "", "environment override as a JSON object")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set an env path, e.g. --set provider.url=http://localhost:8545 (repeatable)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the result bytes as hex")
	return cmd
}

func invoke(ctx context.Context, c *client.Client, rawURI, method, argsJSON, envJSON string) ([]byte, error) {
	var args []byte
	if argsJSON != "" {
		var err error
		if args, err = codec.EncodeString(argsJSON); err != nil {
			return nil, err
		}
	}
	return c.InvokeRaw(ctx, rawURI, method, args, envJSON)
}

// applyEnvSets applies path=value assignments to the env override. Values
// that parse as JSON are set as JSON, anything else as a string.
func applyEnvSets(envJSON string, sets []string) (string, error) {
	if len(sets) == 0 {
		return envJSON, nil
	}
	out := "{}"
	if envJSON != "" {
		out = string(jsonc.ToJSON([]byte(envJSON)))
	}
	for _, kv := range sets {
		path, value, ok := strings.Cut(kv, "=")
		if !ok || path == "" {
			return "", fmt.Errorf("--set %q: want path=value", kv)
		}
		var err error
		if gjson.Valid(value) {
			out, err = sjson.SetRaw(out, path, value)
		} else {
			out, err = sjson.Set(out, path, value)
		}
		if err != nil {
			return "", fmt.Errorf("--set %q: %w", kv, err)
		}
	}
	return out, nil
}

// printResult writes msgpack results as JSON. Results that are not msgpack
// fall back to hex.
func printResult(w io.Writer, out []byte, raw bool) error {
	if !raw {
		if text, err := codec.Decode(out); err == nil {
			_, err = fmt.Fprintln(w, string(text))
			return err
		}
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(out))
	return err
}
