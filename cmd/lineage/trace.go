// Trace command for the lineage CLI.
// See docs/ARCHITECTURE § CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/lineage/pkg/prov"
)

// flagDepth bounds the derivation walk.
var flagDepth int

func init() {
	traceCmd.Flags().IntVar(&flagDepth, "depth", 3, "maximum derivation depth to walk")
}

// traceResult is one level of the derivation walk, JSON-friendly.
type traceResult struct {
	Token       string        `json:"token"`
	Activities  []string      `json:"activities,omitempty"`
	Annotations []string      `json:"annotations,omitempty"`
	Sources     []traceResult `json:"sources,omitempty"`
}

var traceCmd = &cobra.Command{
	Use:   "trace <token>",
	Short: "Walk the derivation chain of an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]

		conn, err := openConnection()
		if err != nil {
			fmt.Fprintln(os.Stderr, "trace:", err)
			os.Exit(exitSysError)
		}
		defer conn.Close()

		result, err := walk(conn, token, flagDepth)
		if err != nil {
			fmt.Fprintln(os.Stderr, "trace:", err)
			os.Exit(exitSysError)
		}

		if flagJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Fprintln(os.Stderr, "marshal JSON:", err)
				os.Exit(exitSysError)
			}
			fmt.Println(string(out))
			return nil
		}

		printTrace(result, 0)
		return nil
	},
}

// walk collects a node's producing activities, annotations, and the windows
// it was derived from, recursing through window members up to depth levels.
func walk(conn *prov.Connection, token string, depth int) (traceResult, error) {
	result := traceResult{Token: token}

	activities, err := conn.GetCreatingActivities(token)
	if err != nil {
		return result, err
	}
	result.Activities = activities

	annotations, err := conn.GetAnnotations(token)
	if err != nil {
		return result, err
	}
	result.Annotations = annotations

	if depth <= 0 {
		return result, nil
	}

	windows, err := conn.GetSourceEntities(token)
	if err != nil {
		return result, err
	}
	for _, w := range windows {
		members, err := conn.GetChildEntities(w)
		if err != nil {
			return result, err
		}
		for _, m := range members {
			sub, err := walk(conn, m, depth-1)
			if err != nil {
				return result, err
			}
			result.Sources = append(result.Sources, sub)
		}
	}
	return result, nil
}

func printTrace(r traceResult, indent int) {
	pad := ""
	for i := 0; i < indent; i++ {
		pad += "  "
	}
	fmt.Println(pad + r.Token)
	for _, a := range r.Activities {
		fmt.Println(pad + "  generated by: " + a)
	}
	for _, a := range r.Annotations {
		fmt.Println(pad + "  annotation:   " + a)
	}
	for _, s := range r.Sources {
		printTrace(s, indent+1)
	}
}
