package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/pkg/ir"
)

var irCmd = &cobra.Command{
	Use:   "ir <file> <function>",
	Short: "Print the lowered IR of a function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIR(current, args[0], args[1])
	},
}

type irStmt struct {
	Index int    `json:"index"`
	Line  int    `json:"line,omitempty"`
	Text  string `json:"text"`
}

type irVar struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Param   bool   `json:"param,omitempty"`
	Temp    bool   `json:"temp,omitempty"`
	Escapes bool   `json:"escapes,omitempty"`
}

func runIR(e *env, path, function string) error {
	fn, err := lowerFunction(path, function)
	if err != nil {
		return err
	}

	if !e.jsonOutput() {
		fmt.Fprint(e.out, fn.String())
		return nil
	}

	params := make(map[*ir.Var]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p] = true
	}
	out := struct {
		Function string   `json:"function"`
		File     string   `json:"file"`
		Vars     []irVar  `json:"vars"`
		Stmts    []irStmt `json:"stmts"`
	}{Function: fn.Function, File: fn.File}
	for _, v := range fn.Vars {
		out.Vars = append(out.Vars, irVar{Name: v.Name, Type: v.Type.String(), Param: params[v], Temp: v.Temp, Escapes: v.Escapes})
	}
	for _, s := range fn.Stmts {
		out.Stmts = append(out.Stmts, irStmt{Index: s.Index(), Line: s.Pos().Line, Text: s.String()})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(e.out, string(data))
	return nil
}

func init() {
	RootCmd.AddCommand(irCmd)
}
