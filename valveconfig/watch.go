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

package valveconfig

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/logging"
)

// Watch re-reads the configuration file at path whenever it changes on
// disk and calls onChange with the freshly loaded, validated Config. A
// rewrite that fails to load or validate is logged and discarded; the
// previously loaded configuration stays in effect. The watch lasts for
// the life of the process.
func Watch(path string, onChange func(Config)) liberr.Error {
	v := viper.New()
	v.SetConfigFile(path)

	if e := v.ReadInConfig(); e != nil {
		return errs.RelayFatalConfig.Error(e)
	}

	log := logging.Component("valveconfig")

	v.OnConfigChange(func(ev fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			log.Error("configuration reload rejected", nil, "file", ev.Name, "error", err)
			return
		}
		log.Info("configuration reloaded", nil, "file", ev.Name, "op", ev.Op.String())
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}
