// Show command for the lineage CLI.
// See docs/ARCHITECTURE § CLI.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lineage/pkg/prov"
)

// errNodeNotFound reports a token with no recorded graph rows. Absent nodes
// read back as empty property maps, never as a store error.
var errNodeNotFound = errors.New("node not found")

var showCmd = &cobra.Command{
	Use:   "show <token>",
	Short: "Display a provenance node with its typed properties",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			fmt.Fprintln(os.Stderr, "show:", err)
			os.Exit(exitSysError)
		}
		defer conn.Close()

		if err := runShow(conn, args[0], flagJSON, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "show:", err)
			if errors.Is(err, errNodeNotFound) {
				os.Exit(exitUserError)
			}
			os.Exit(exitSysError)
		}
		return nil
	},
}

// runShow resolves the token and writes the node's properties to w, as
// indented JSON or as sorted "label [code]: text" lines.
func runShow(conn *prov.Connection, token string, asJSON bool, w io.Writer) error {
	props, err := conn.GetNode(token)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return fmt.Errorf("%w: %q", errNodeNotFound, token)
	}

	if asJSON {
		output := make(map[string]any, len(props))
		for label, value := range props {
			output[label] = value.Native()
		}
		out, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	fmt.Fprintln(w, "Token:", token)
	labels := make([]string, 0, len(props))
	for label := range props {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		v := props[label]
		fmt.Fprintf(w, "  %s [%s]: %s\n", label, v.Code(), v.Text())
	}
	return nil
}
