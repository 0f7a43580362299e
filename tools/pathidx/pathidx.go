// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Command pathidx prints the path indices of a graph description.
//
// Usage:
//
//	pathidx --graph mesh.yaml --path adjacency --endpoint 0
//	pathidx --graph mesh.yaml --all
//	pathidx layout --graph mesh.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gx-org/meshc/base/stringseq"
	"github.com/gx-org/meshc/build/layout"
	"github.com/gx-org/meshc/build/pathindex"
	"github.com/gx-org/meshc/tools/pathidx/graphfile"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	graph    string
	path     string
	endpoint int
	all      bool
	verbose  bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "pathidx",
		Short: "Print the path indices of a graph",
		Long: `Load a YAML graph description and print the neighbors of every
element of the path indices built from its path expressions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaths(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.graph, "graph", "g", "", "YAML graph description")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")
	cmd.Flags().StringVarP(&opts.path, "path", "p", "", "name of the path expression to build")
	cmd.Flags().IntVarP(&opts.endpoint, "endpoint", "e", 0, "endpoint of the path used as the source")
	cmd.Flags().BoolVar(&opts.all, "all", false, "print the index of every path expression")
	cmd.MarkFlagsMutuallyExclusive("path", "all")
	cmd.AddCommand(newLayoutCommand(opts))
	return cmd
}

func newLayoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Print the backend layout of the sets of a graph",
		Long: `Print the struct passed to the backend for every set of a graph
and the neighbor index of every homogeneous edge set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)).
		With(zap.String("service", "pathidx"))
}

func load(opts *options) (*graphfile.Graph, error) {
	if opts.graph == "" {
		return nil, errors.Errorf("no graph description: use --graph")
	}
	return graphfile.ReadFile(opts.graph)
}

func runPaths(out, logOut io.Writer, opts *options) error {
	log := newLogger(logOut, opts.verbose)
	defer log.Sync()
	g, err := load(opts)
	if err != nil {
		return err
	}
	log.Debug("graph loaded", zap.String("file", opts.graph), zap.Int("sets", g.Sets.Size()), zap.Int("paths", g.Paths.Size()))
	var names []string
	switch {
	case opts.all:
		for name := range g.Paths.Keys() {
			names = append(names, name)
		}
	case opts.path != "":
		names = []string{opts.path}
	default:
		return errors.Errorf("no path to build: use --path or --all")
	}
	builder := pathindex.NewBuilder(pathindex.WithLogger(log))
	for i, name := range names {
		pe, err := g.Path(name)
		if err != nil {
			return err
		}
		pi, err := builder.BuildSegmented(pe, opts.endpoint)
		if err != nil {
			return errors.WithMessagef(err, "path %s", name)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s %s (endpoint %d):\n", name, pe, opts.endpoint)
		writeNeighbors(out, pi)
	}
	log.Debug("path indices built", zap.Int("cached", builder.Len()))
	return nil
}

func writeNeighbors(w io.Writer, pi pathindex.PathIndex) {
	for elem := range pi.Elements() {
		fmt.Fprintf(w, "  %d: %s\n", elem, stringseq.JoinInts(pi.Neighbors(elem), " "))
	}
}

func runLayout(out, logOut io.Writer, opts *options) error {
	log := newLogger(logOut, opts.verbose)
	defer log.Sync()
	g, err := load(opts)
	if err != nil {
		return err
	}
	builder := pathindex.NewBuilder(pathindex.WithLogger(log))
	first := true
	for name, set := range g.Sets.Iter() {
		if !first {
			fmt.Fprintln(out)
		}
		first = false
		fmt.Fprintf(out, "%s {\n", name)
		for _, slot := range layout.SetFields(set) {
			fmt.Fprintf(out, "  %s\n", slot)
		}
		fmt.Fprintln(out, "}")
		if !set.IsEdgeSet() {
			continue
		}
		ni, err := layout.NewNeighborIndex(builder, set)
		if err != nil {
			log.Warn("no neighbor index", zap.String("set", name), zap.Error(err))
			continue
		}
		fmt.Fprintf(out, "endpoints: %s\n", joinInt32(layout.Endpoints(set)))
		fmt.Fprintf(out, "rowStart: %s\n", joinInt32(ni.RowStart))
		fmt.Fprintf(out, "colIdx: %s\n", joinInt32(ni.ColIdx))
	}
	return nil
}

func joinInt32(vals []int32) string {
	return stringseq.JoinInts(func(yield func(int) bool) {
		for _, v := range vals {
			if !yield(int(v)) {
				return
			}
		}
	}, " ")
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
