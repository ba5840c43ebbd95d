package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bfv/rulecheck/internal/dataset"
	"github.com/bfv/rulecheck/internal/engine"
	"github.com/bfv/rulecheck/internal/rulepack"
)

// NewInitCmd builds and returns the 'init' cobra command.
func NewInitCmd() *cobra.Command {
	var (
		outputFile string
		format     string
		encoding   string
	)

	cmd := &cobra.Command{
		Use:   "init <data.csv>",
		Short: "Generate a starter rule pack from an existing CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], outputFile, format, encoding)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "Output format: json or yaml (default from -o extension, else yaml)")
	cmd.Flags().StringVar(&encoding, "encoding", string(dataset.EncodingAuto), "CSV encoding: auto, utf-8 or latin1")
	return cmd
}

// columnStats tracks what has been observed in one column.
type columnStats struct {
	values   int
	numeric  bool
	min, max float64
}

func (c *columnStats) observe(raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	v, err := engine.ParseNumber(raw)
	if err != nil {
		c.numeric = false
		c.values++
		return
	}
	if c.values == 0 {
		c.min, c.max = v, v
	} else {
		c.min = min(c.min, v)
		c.max = max(c.max, v)
	}
	c.values++
}

// runInit is the entry point for the init command.
func runInit(stdout io.Writer, dataPath, outputPath, formatName, encodingName string) error {
	log.Debug().Str("data", dataPath).Str("output", outputPath).Str("format", formatName).Msg("init started")

	format := rulepack.FormatYAML
	switch {
	case formatName != "":
		f, err := rulepack.ParseFormat(formatName)
		if err != nil {
			return err
		}
		format = f
	case outputPath != "":
		format = rulepack.FormatFromPath(outputPath)
	}

	enc, err := dataset.ParseEncoding(encodingName)
	if err != nil {
		return err
	}

	pack, err := inferRulePack(dataPath, enc)
	if err != nil {
		return err
	}

	data, err := rulepack.Encode(rulepack.DocumentFrom(pack), format)
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(stdout, outputPath)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = closeOut()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	log.Debug().
		Int("requiredColumns", len(pack.RequiredColumns)).
		Int("numericRules", len(pack.NumericRules)).
		Msg("init complete")
	return nil
}

// inferRulePack reads the CSV at dataPath and derives required columns from
// the header and numeric rules from columns whose non-empty values all parse
// as numbers. Bounds are the observed minimum and maximum.
func inferRulePack(dataPath string, enc dataset.Encoding) (*rulepack.RulePack, error) {
	src, err := dataset.OpenCSV(appFS, dataPath, enc)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var columns []string
	stats := map[string]*columnStats{}
	for _, name := range src.Columns() {
		if name == "" || stats[name] != nil {
			continue
		}
		columns = append(columns, name)
		stats[name] = &columnStats{numeric: true}
	}

	rows := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", dataPath, err)
		}
		for name, value := range row {
			if st := stats[name]; st != nil {
				st.observe(value)
			}
		}
		rows++
	}
	log.Debug().Int("rows", rows).Int("columns", len(columns)).Msg("csv scanned")

	pack := &rulepack.RulePack{
		DatasetName:     strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath)),
		RequiredColumns: columns,
	}
	for _, name := range columns {
		st := stats[name]
		if !st.numeric || st.values == 0 {
			continue
		}
		lo, hi := st.min, st.max
		pack.NumericRules = append(pack.NumericRules, rulepack.NumericRule{Column: name, Min: &lo, Max: &hi})
	}

	if err := pack.Validate(); err != nil {
		return nil, fmt.Errorf("inferred rule pack: %w", err)
	}
	return pack, nil
}
