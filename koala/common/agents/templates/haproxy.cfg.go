/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package templates

import (
	"fmt"
)

const (
	HaproxyConfHeader = "# Generated by %s, do not edit manually."
)

const HaproxyConfGoTmpl string = `%s
global
{{ directives .Global }}

defaults
{{ directives .Defaults }}
{{- with .Config }}
{{- if .Users }}

userlist {{ .Userlist }}
{{- range .Users }}
    user {{ .Name }} insecure-password {{ .Password }}
{{- end }}
{{- end }}
{{- range .Frontends }}

frontend {{ .Name }}
    bind :{{ .Port }}
{{- range .ACLs }}
    acl {{ .Name }} {{ .Matcher }}
{{- end }}
{{- range .UseBackends }}
    use_backend {{ .Backend }} if {{ join " " .Conditions }}
{{- end }}
{{- if .DefaultBackend }}
    default_backend {{ .DefaultBackend }}
{{- end }}
{{- end }}
{{- range .Backends }}

backend {{ .Name }}
{{- range .Settings }}
    {{ . }}
{{- end }}
{{- range .Servers }}
    {{ . }}
{{- end }}
{{- end }}
{{- end }}
`

func HaproxyConfTemplate(agent string) string {
	return fmt.Sprintf(HaproxyConfGoTmpl, fmt.Sprintf(HaproxyConfHeader, agent))
}
