package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/crcsweep/internal/crc"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Data string // text to checksum
	Hex  string // hex bytes to checksum
}

// ResolveOutput is the resolve command payload.
type ResolveOutput struct {
	Name           string `json:"name"`
	Width          uint   `json:"width"`
	Poly           string `json:"poly"`
	Init           string `json:"init"`
	XorOut         string `json:"xor_out"`
	NormalizedInit string `json:"normalized_init"`
	ReflectIn      bool   `json:"reflect_in"`
	ReflectOut     bool   `json:"reflect_out"`
	ResultBytes    int    `json:"result_bytes"`
	Check          string `json:"check"`
	CRC            string `json:"crc,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <algorithm>",
		Short: "Show the circuit parameters for one algorithm",
		Long: `Resolve an algorithm name to its checksum parameters, including the
normalized init value (init XOR xor_out) a circuit is built with.

Optionally compute the reference CRC of --data or --hex.

Examples:
  crcsweep resolve crc-32
  crcsweep resolve kermit --data 123456789
  crcsweep resolve crc-16 --hex deadbeef --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "text to checksum")
	cmd.Flags().StringVar(&opts.Hex, "hex", "", "hex-encoded bytes to checksum")
	cmd.MarkFlagsMutuallyExclusive("data", "hex")

	return cmd
}

func runResolve(opts *ResolveOptions, name string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	cat, err := loadCatalog(opts.Catalog)
	if err != nil {
		return fail(f, ExitCommandError, loadErrorCode(err), "failed to load catalog", err)
	}

	spec, err := crc.NewResolver(cat).Resolve(name)
	if err != nil {
		code := ErrCodeInvalidDefinition
		if crc.IsUnknownAlgorithm(err) {
			code = ErrCodeUnknownAlgorithm
		}
		return fail(f, ExitCommandError, code, "failed to resolve algorithm", err)
	}

	out := ResolveOutput{
		Name:           spec.Name,
		Width:          spec.Width,
		Poly:           hexWidth(spec.Poly, spec.Width),
		Init:           hexWidth(spec.RawInit, spec.Width),
		XorOut:         hexWidth(spec.XorOut, spec.Width),
		NormalizedInit: hexWidth(spec.Init, spec.Width),
		ReflectIn:      spec.ReflectIn,
		ReflectOut:     spec.ReflectOut,
		ResultBytes:    spec.ResultBytes(),
		Check:          hexWidth(spec.Reference(crc.CheckInput), spec.Width),
	}

	// An empty --data or --hex is the empty frame, not "no input".
	switch {
	case cmd.Flags().Changed("hex"):
		data, err := hex.DecodeString(opts.Hex)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeGeneric, "invalid --hex value", err)
		}
		out.CRC = hexWidth(spec.Reference(data), spec.Width)
	case cmd.Flags().Changed("data"):
		out.CRC = hexWidth(spec.Reference([]byte(opts.Data)), spec.Width)
	}

	if opts.Format == "json" {
		return f.Success(out)
	}
	writeResolveText(cmd.OutOrStdout(), out)
	return nil
}

func writeResolveText(w io.Writer, out ResolveOutput) {
	rows := []struct{ label, value string }{
		{"name", out.Name},
		{"width", fmt.Sprint(out.Width)},
		{"poly", out.Poly},
		{"init", out.Init},
		{"xor_out", out.XorOut},
		{"normalized_init", out.NormalizedInit},
		{"reflect_in", fmt.Sprint(out.ReflectIn)},
		{"reflect_out", fmt.Sprint(out.ReflectOut)},
		{"result_bytes", fmt.Sprint(out.ResultBytes)},
		{"check", out.Check},
	}
	if out.CRC != "" {
		rows = append(rows, struct{ label, value string }{"crc", out.CRC})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-16s%s\n", r.label, r.value)
	}
}
