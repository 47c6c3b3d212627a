/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package metadata

// Endpoint is one backend instance (container) serving a service alias.
type Endpoint struct {
	Name        string `json:"name" yaml:"name"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Port        string `json:"port" yaml:"port"`
	Address     string `json:"address" yaml:"address"`
	HealthCheck string `json:"health_check,omitempty" yaml:"health_check,omitempty"`
}

// Routes maps a service alias to its ordered endpoint list.
type Routes map[string][]Endpoint

// ServiceSettings holds the per-service knobs. An empty value means "not configured".
type ServiceSettings struct {
	Balance             string   `json:"balance,omitempty" yaml:"balance,omitempty"`
	Cookie              string   `json:"cookie,omitempty" yaml:"cookie,omitempty"`
	ForceSSL            string   `json:"force_ssl,omitempty" yaml:"force_ssl,omitempty"`
	HTTPCheck           string   `json:"http_check,omitempty" yaml:"http_check,omitempty"`
	HSTSMaxAge          string   `json:"hsts_max_age,omitempty" yaml:"hsts_max_age,omitempty"`
	GzipCompressionType string   `json:"gzip_compression_type,omitempty" yaml:"gzip_compression_type,omitempty"`
	Options             []string `json:"option,omitempty" yaml:"option,omitempty"`
	ExtraSettings       string   `json:"extra_settings,omitempty" yaml:"extra_settings,omitempty"`
	ExcludeBasicAuth    string   `json:"exclude_basic_auth,omitempty" yaml:"exclude_basic_auth,omitempty"`
}

// Details maps a service alias to its settings.
type Details map[string]ServiceSettings

// Lookup returns the settings of alias, or zero settings when unknown.
func (d Details) Lookup(alias string) ServiceSettings {
	return d[alias]
}

type VirtualHost struct {
	ServiceAlias string `json:"service_alias" yaml:"service_alias"`
	Scheme       string `json:"scheme" yaml:"scheme"`
	Host         string `json:"host" yaml:"host"`
	Path         string `json:"path" yaml:"path"`
	Port         string `json:"port" yaml:"port"`
}

type VirtualHosts []VirtualHost

// Aliases returns the distinct service aliases referenced, in first-seen order.
func (v VirtualHosts) Aliases() []string {
	seen := map[string]bool{}
	aliases := []string{}
	for _, vh := range v {
		if vh.ServiceAlias == "" || seen[vh.ServiceAlias] {
			continue
		}
		seen[vh.ServiceAlias] = true
		aliases = append(aliases, vh.ServiceAlias)
	}
	return aliases
}
