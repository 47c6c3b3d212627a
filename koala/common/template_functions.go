/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package common

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
)

const (
	TemplateDirectiveIndent = "    "
)

var TemplateFunctions = map[string]any{
	// directives lays out HAProxy lines within a section, one per line
	"directives": func(lines []string) string {
		if len(lines) == 0 {
			return ""
		}
		return TemplateDirectiveIndent + strings.Join(lines, "\n"+TemplateDirectiveIndent)
	},
	"lower": func(str string) string {
		return strings.ToLower(str)
	},
}

func LoadTemplateFunctions(tpl *template.Template) {
	// Load sprig fts
	tpl.Funcs(sprig.TxtFuncMap())
	// Load custom functions that may override the ones in sprig
	for k, function := range TemplateFunctions {
		tpl.Funcs(template.FuncMap{
			k: function,
		})
	}
}
