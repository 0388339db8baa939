package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"alldaycal/internal/refresh"
	"alldaycal/internal/render"
)

const (
	formatSVG  = "svg"
	formatHTML = "html"
	formatJSON = "json"
	formatText = "text"
)

type renderOpts struct {
	format   string // output format: svg, html, json or text
	output   string // output file; empty writes to stdout
	colChars int    // day column width of the text format
}

func newRenderCmd(a *app) *cobra.Command {
	opts := renderOpts{format: formatText, colChars: render.DefaultColumnChars}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch the sources once and print the layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err := checkFormat(opts.format); err != nil {
				return err
			}

			snap, err := refresh.NewPipeline(a.cfg, nil).Run(cmd.Context())
			if err != nil {
				return err
			}

			if opts.output == "" {
				return writeSnapshot(a.out, snap, opts)
			}
			f, err := os.Create(opts.output)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			return writeSnapshot(f, snap, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, html, json or text")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.colChars, "columns", opts.colChars, "day column width of the text format")
	return cmd
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case formatSVG, formatHTML, formatJSON, formatText:
		return nil
	}
	return fmt.Errorf("unknown format %q (want svg, html, json or text)", format)
}

func writeSnapshot(w io.Writer, snap *refresh.Snapshot, opts renderOpts) error {
	th := render.DefaultTheme()
	switch strings.ToLower(opts.format) {
	case formatSVG:
		return render.SVG(w, snap, th)
	case formatHTML:
		return render.HTML(w, snap, th)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case formatText:
		_, err := fmt.Fprintln(w, render.Text(snap, opts.colChars))
		return err
	}
	return checkFormat(opts.format)
}
