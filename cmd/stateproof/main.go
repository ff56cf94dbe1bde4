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

// stateproof inspects and verifies serialized block witnesses.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/statetrace/statetrace/core/stateless"
)

var (
	witnessFileFlag = &cli.StringFlag{
		Name:  "witness",
		Usage: "Path to the serialized witness frame",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (0=crit .. 5=trace)",
		Value: 3,
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	app = &cli.App{
		Name:  "stateproof",
		Usage: "verify and inspect block state witnesses",
		Flags: []cli.Flag{witnessFileFlag, verbosityFlag, noColorFlag},
		Commands: []*cli.Command{
			{
				Name:   "verify",
				Usage:  "Verify every claim in a witness against its state root",
				Action: runVerify,
			},
			{
				Name:   "inspect",
				Usage:  "Print the contents of a witness",
				Action: runInspect,
			},
		},
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) (*Config, *stateless.Witness, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	color.NoColor = color.NoColor || cfg.NoColor
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(
		os.Stderr, log.FromLegacyLevel(cfg.Verbosity), !cfg.NoColor)))

	frame, err := os.ReadFile(cfg.WitnessFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read witness: %w", err)
	}
	w, err := stateless.DecodeFrame(frame)
	if err != nil {
		return nil, nil, fmt.Errorf("decode witness: %w", err)
	}
	return cfg, w, nil
}

func runVerify(ctx *cli.Context) error {
	_, w, err := setup(ctx)
	if err != nil {
		return err
	}
	log.Info("Verifying witness", "block", w.Number(), "root", w.Root(),
		"nodes", w.Proof().NodeCount(), "accounts", len(w.Proof().Claims()))

	if _, err := w.Verify(); err != nil {
		color.Red("FAIL: %v", err)
		return cli.Exit("", 1)
	}
	color.Green("OK: all claims verified against root %s", w.Root())
	return nil
}

func runInspect(ctx *cli.Context) error {
	_, w, err := setup(ctx)
	if err != nil {
		return err
	}
	header := color.New(color.Bold)
	header.Printf("witness for block %d\n", w.Number())
	fmt.Printf("  state root  %s\n", w.Root())
	fmt.Printf("  trie nodes  %d\n", w.Proof().NodeCount())
	fmt.Printf("  code blobs  %d\n", len(w.Proof().Codes()))

	claims := w.Proof().Claims()
	header.Printf("claims (%d accounts)\n", len(claims))
	for _, claim := range claims {
		fmt.Printf("  %s nonce=%d balance=%v slots=%d\n",
			claim.Address, claim.Nonce, claim.Balance, len(claim.Slots))
		for _, slot := range claim.Slots {
			fmt.Printf("    %s = %v\n", slot.Key, slot.Value)
		}
	}
	return nil
}
