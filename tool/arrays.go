// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"os"

	"github.com/cockroachdb/colenc/array"
	"github.com/cockroachdb/colenc/compress"
	"github.com/cockroachdb/colenc/dtype"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// arraysT implements the tools operating on arrays read from files, including
// both configuration state and the commands themselves.
type arraysT struct {
	Compress *cobra.Command
	Describe *cobra.Command
	Stats    *cobra.Command

	// Configuration and state.
	compressors *[]Compressor

	// Flags.
	dtype         dtypeFlag
	raw           bool
	verbose       bool
	sampleSize    int
	sampleCount   int
	seed          uint64
	disabled      []string
	byteAlgorithm string
}

func newArrays(compressors *[]Compressor) *arraysT {
	a := &arraysT{compressors: compressors}
	a.dtype.mustSet("i64")

	a.Compress = &cobra.Command{
		Use:   "compress <files>",
		Short: "compress arrays and print the chosen encodings",
		Long: `
Compress the values held by each file and print the tree of compressors chosen
for them along with the original and compressed sizes. Files hold one value per
line in the format selected by --type, or, with --raw, the little-endian
encoding of primitive values.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  a.runCompress,
	}
	a.Describe = &cobra.Command{
		Use:   "describe <files>",
		Short: "print the layout of compressed arrays",
		Long: `
Compress the values held by each file and print the physical layout of the
result: the encoding, type, length and size of every nested array.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  a.runDescribe,
	}
	a.Stats = &cobra.Command{
		Use:   "stats <files>",
		Short: "print array statistics",
		Long: `
Print the statistics of the values held by each file. For integers, a plot of
the distribution of the bit widths of the values is printed as well.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  a.runStats,
	}

	for _, cmd := range []*cobra.Command{a.Compress, a.Describe, a.Stats} {
		cmd.Flags().Var(
			&a.dtype, "type", "type of the values (bool, utf8, binary, timestamp or a primitive type, suffixed with ? if nullable)")
		cmd.Flags().BoolVar(
			&a.raw, "raw", false, "read the file as little-endian primitive values")
	}
	for _, cmd := range []*cobra.Command{a.Compress, a.Describe} {
		cmd.Flags().BoolVarP(
			&a.verbose, "verbose", "v", false, "log the decisions of the compressor")
		cmd.Flags().IntVar(
			&a.sampleSize, "sample-size", 0, "number of consecutive elements in each sampled slice")
		cmd.Flags().IntVar(
			&a.sampleCount, "sample-count", 0, "number of slices sampled")
		cmd.Flags().Uint64Var(
			&a.seed, "seed", 0, "sampling seed")
		cmd.Flags().StringSliceVar(
			&a.disabled, "disable", nil, "IDs of compressors not to use")
		cmd.Flags().StringVar(
			&a.byteAlgorithm, "byte-algorithm", "", "compression of variable-length data (snappy, minlz1, zstd1, zstd3, adaptive)")
	}
	return a
}

func (a *arraysT) config() compress.Config {
	cfg := compress.Config{
		SampleSize:    a.sampleSize,
		SampleCount:   a.sampleCount,
		Seed:          a.seed,
		Disabled:      a.disabled,
		ByteAlgorithm: a.byteAlgorithm,
	}
	if a.verbose {
		cfg.Logger = compress.DefaultLogger{}
	}
	return cfg
}

// compress loads the file at path and compresses it. The returned function
// must be called once the result is no longer used.
func (a *arraysT) compress(path string) (orig *array.Array, r compress.Result, done func(), err error) {
	orig, done, err = a.load(path)
	if err != nil {
		return nil, compress.Result{}, nil, err
	}
	s, err := compress.NewSamplingCompressor(a.config(), *a.compressors...)
	if err == nil {
		r, err = s.Compress(orig, nil)
	}
	if err != nil {
		done()
		return nil, compress.Result{}, nil, err
	}
	return orig, r, done, nil
}

func (a *arraysT) load(path string) (*array.Array, func(), error) {
	if a.raw {
		return loadRaw(path, a.dtype.dt)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	arr, err := readValues(f, a.dtype.dt)
	if err != nil {
		return nil, nil, err
	}
	return arr, func() {}, nil
}

func (a *arraysT) runCompress(cmd *cobra.Command, args []string) {
	for _, arg := range args {
		func() {
			orig, r, done, err := a.compress(arg)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", arg, err)
				return
			}
			defer done()

			fmt.Fprintf(stdout, "%s\n", arg)
			if r.Tree == nil {
				fmt.Fprintf(stdout, "uncompressed\n")
			} else {
				fmt.Fprint(stdout, r.Tree)
			}
			tbl := tablewriter.NewWriter(stdout)
			tbl.SetHeader([]string{"Type", "Length", "Original", "Compressed", "Ratio"})
			ratio := 1.0
			if orig.NBytes() > 0 {
				ratio = float64(r.NBytes()) / float64(orig.NBytes())
			}
			tbl.Append([]string{
				orig.DType().String(),
				fmt.Sprint(orig.Len()),
				formatBytes(orig.NBytes()),
				formatBytes(r.NBytes()),
				fmt.Sprintf("%.3f", ratio),
			})
			tbl.Render()
		}()
	}
}

func (a *arraysT) runDescribe(cmd *cobra.Command, args []string) {
	for _, arg := range args {
		func() {
			_, r, done, err := a.compress(arg)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", arg, err)
				return
			}
			defer done()
			fmt.Fprintf(stdout, "%s\n%s", arg, r.Array.Tree())
		}()
	}
}

func (a *arraysT) runStats(cmd *cobra.Command, args []string) {
	for _, arg := range args {
		func() {
			arr, done, err := a.load(arg)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", arg, err)
				return
			}
			defer done()

			fmt.Fprintf(stdout, "%s\n", arg)
			tbl := tablewriter.NewWriter(stdout)
			tbl.SetHeader([]string{"Statistic", "Value"})
			for _, s := range array.AllStats {
				v, ok := arr.Statistics().Compute(s)
				val := "-"
				if ok {
					val = v.String()
				}
				tbl.Append([]string{s.String(), val})
			}
			tbl.Render()

			if !arr.DType().IsInt() {
				return
			}
			if freq, ok := arr.Statistics().ComputeFreq(array.StatBitWidthFreq); ok {
				fmt.Fprintf(stdout, "%s\n", plotFreq(freq, arr.DType()))
			}
		}()
	}
}

// plotFreq returns an ASCII plot of a bit width histogram.
func plotFreq(freq []uint64, dt dtype.DType) string {
	values := make([]float64, len(freq))
	for i, f := range freq {
		values[i] = float64(f)
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("%s values per bit width", dt)))
}
