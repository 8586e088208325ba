// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matrixorigin/moradix/pkg/common/concurrent"
	"github.com/matrixorigin/moradix/pkg/config"
	"github.com/matrixorigin/moradix/pkg/logutil"
	v2 "github.com/matrixorigin/moradix/pkg/util/metric/v2"
)

var configFile string

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mo-radix",
		Short:         "Radix partitioned hash join harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "toml configuration, defaults apply when empty")
	cmd.PersistentFlags().StringVar(&cpuProfilePath, "cpu-profile", "", "write cpu profile to the specified file")
	cmd.AddCommand(joinCommand(), partitionCommand())
	return cmd
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadConfig(configFile)
	}
	cfg := &config.Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup installs the logger and metrics of cfg and returns a context that
// carries cfg and an executor sized by it.
func setup(cfg *config.Config) (context.Context, *concurrent.Executor, error) {
	logutil.SetupMOLogger(&cfg.Log)
	if cfg.Metric.Enable {
		v2.Enable(true)
	}
	exec, err := concurrent.NewExecutor(cfg.Workers)
	if err != nil {
		return nil, nil, err
	}
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = logutil.WithFields(ctx, zap.Int("workers", exec.Workers()))
	return ctx, exec, nil
}

// reportMetrics logs every counter and histogram sum gathered so far.
func reportMetrics() {
	mfs, err := v2.GetPrometheusGatherer().Gather()
	if err != nil {
		logutil.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			if c := m.GetCounter(); c != nil {
				fields = append(fields, zap.Float64("value", c.GetValue()))
			}
			if h := m.GetHistogram(); h != nil {
				fields = append(fields,
					zap.Uint64("count", h.GetSampleCount()),
					zap.Float64("sum", h.GetSampleSum()))
			}
			logutil.Info("metric", fields...)
		}
	}
}
