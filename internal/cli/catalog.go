package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/crcsweep/internal/crc"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Verify bool
}

// CatalogEntry is one algorithm in catalog output.
type CatalogEntry struct {
	Name       string `json:"name"`
	Width      uint   `json:"width"`
	Poly       string `json:"poly"`
	Init       string `json:"init"`
	XorOut     string `json:"xor_out"`
	ReflectIn  bool   `json:"reflect_in"`
	ReflectOut bool   `json:"reflect_out"`
	Check      string `json:"check,omitempty"`
}

// CatalogOutput is the catalog command payload.
type CatalogOutput struct {
	Algorithms []CatalogEntry `json:"algorithms"`
	Verified   bool           `json:"verified,omitempty"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the CRC algorithm catalog",
		Long: `List every algorithm in the catalog with its Rocksoft parameters.

With --verify, every entry carrying a check value is run through the
reference over "123456789" and the command fails on any disagreement.

Examples:
  crcsweep catalog
  crcsweep catalog --verify
  crcsweep catalog --catalog ./algorithms.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check every entry against its check value")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	cat, err := loadCatalog(opts.Catalog)
	if err != nil {
		return fail(f, ExitCommandError, loadErrorCode(err), "failed to load catalog", err)
	}

	out := CatalogOutput{Algorithms: make([]CatalogEntry, 0, len(cat.Names()))}
	for _, name := range cat.Names() {
		def, _ := cat.Lookup(name)
		spec, err := crc.FromDefinition(def)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeInvalidDefinition, "invalid catalog entry", err)
		}
		entry := CatalogEntry{
			Name:       spec.Name,
			Width:      spec.Width,
			Poly:       hexWidth(spec.Poly, spec.Width),
			Init:       hexWidth(spec.RawInit, spec.Width),
			XorOut:     hexWidth(spec.XorOut, spec.Width),
			ReflectIn:  spec.ReflectIn,
			ReflectOut: spec.ReflectOut,
		}
		if def.HasCheck {
			entry.Check = hexWidth(def.Check, spec.Width)
		}
		out.Algorithms = append(out.Algorithms, entry)
	}

	if opts.Verify {
		if err := crc.Verify(cat); err != nil {
			return fail(f, ExitFailure, ErrCodeCheckFailed, "catalog verification failed", err)
		}
		out.Verified = true
	}

	if opts.Format == "json" {
		return f.Success(out)
	}
	writeCatalogText(cmd.OutOrStdout(), out)
	return nil
}

func writeCatalogText(w io.Writer, out CatalogOutput) {
	fmt.Fprintf(w, "%-18s %5s  %-18s  %-18s  %-18s  %-7s  %s\n", "NAME", "WIDTH", "POLY", "INIT", "XOR_OUT", "REFLECT", "CHECK")
	for _, e := range out.Algorithms {
		check := e.Check
		if check == "" {
			check = "-"
		}
		fmt.Fprintf(w, "%-18s %5d  %-18s  %-18s  %-18s  %-7s  %s\n",
			e.Name, e.Width, e.Poly, e.Init, e.XorOut, reflectLabel(e.ReflectIn, e.ReflectOut), check)
	}
	if out.Verified {
		fmt.Fprintf(w, "\n%d algorithms, all check values verified\n", len(out.Algorithms))
	}
}

func reflectLabel(in, out bool) string {
	switch {
	case in && out:
		return "yes"
	case in:
		return "in"
	case out:
		return "out"
	default:
		return "no"
	}
}

// hexWidth formats v with one hex digit per started nibble of width.
func hexWidth(v uint64, width uint) string {
	return fmt.Sprintf("0x%0*X", int(width+3)/4, v)
}
