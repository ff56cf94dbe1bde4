// Copyright 2026 The statetrace Authors
// This file is part of statetrace.
//
// statetrace is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// statetrace is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with statetrace. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Config holds the stateproof tool configuration.
type Config struct {
	WitnessFile string
	Verbosity   int
	NoColor     bool
}

func loadConfig(ctx *cli.Context) (*Config, error) {
	cfg := &Config{
		WitnessFile: ctx.String(witnessFileFlag.Name),
		Verbosity:   ctx.Int(verbosityFlag.Name),
		NoColor:     ctx.Bool(noColorFlag.Name),
	}
	if cfg.WitnessFile == "" {
		return nil, fmt.Errorf("--%s is required", witnessFileFlag.Name)
	}
	return cfg, nil
}
