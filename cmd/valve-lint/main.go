/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command valve-lint loads and validates a Valve configuration file
// without starting the relay: this binary only ever calls Validate.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sabouaram/valve/valveconfig"
)

func main() {
	var path string

	root := &cobra.Command{
		Use:   "valve-lint",
		Short: "Validate a Valve configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := valveconfig.Load(path)
			if err != nil {
				return err
			}
			if len(cfg.Direct.Addresses) > 0 {
				fmt.Printf("direct relaying: %d address(es)\n", len(cfg.Direct.Addresses))
			}
			if len(cfg.Controlled.Addresses) > 0 {
				fmt.Printf("controlled relaying: %d address(es)\n", len(cfg.Controlled.Addresses))
			}
			fmt.Println(color.GreenString("configuration is valid"))
			return nil
		},
	}
	root.Flags().StringVarP(&path, "config", "c", "", "path to the configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("valve-lint: %v", err))
		os.Exit(1)
	}
}
