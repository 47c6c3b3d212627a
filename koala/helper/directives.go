/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package helper

const (
	DefaultHealthCheck      = "check inter 2000 rise 2 fall 3"
	DefaultForceSSLRedirect = "redirect scheme https code 301 if !{ ssl_fc }"
	DefaultWebsocketOption  = "option http-server-close"
	DefaultUserlistName     = "haproxy_userlist"
	DefaultAuthRealm        = "haproxy_basic_auth"
)

// Directives is the table of fixed HAProxy fragments the resolver emits.
// It is built once at startup and never mutated afterwards.
type Directives struct {
	HealthCheck      string `yaml:"healthCheck"`
	ForceSSLRedirect string `yaml:"forceSslRedirect"`
	WebsocketOption  string `yaml:"websocketOption"`
	UserlistName     string `yaml:"userlist"`
	AuthRealm        string `yaml:"authRealm"`
}

func DefaultDirectives() Directives {
	return Directives{
		HealthCheck:      DefaultHealthCheck,
		ForceSSLRedirect: DefaultForceSSLRedirect,
		WebsocketOption:  DefaultWebsocketOption,
		UserlistName:     DefaultUserlistName,
		AuthRealm:        DefaultAuthRealm,
	}
}

// WithDefaults fills any unset field from DefaultDirectives.
func (d Directives) WithDefaults() Directives {
	def := DefaultDirectives()
	if d.HealthCheck == "" {
		d.HealthCheck = def.HealthCheck
	}
	if d.ForceSSLRedirect == "" {
		d.ForceSSLRedirect = def.ForceSSLRedirect
	}
	if d.WebsocketOption == "" {
		d.WebsocketOption = def.WebsocketOption
	}
	if d.UserlistName == "" {
		d.UserlistName = def.UserlistName
	}
	if d.AuthRealm == "" {
		d.AuthRealm = def.AuthRealm
	}
	return d
}

type SettingResolver struct {
	directives Directives
}

func NewSettingResolver(directives Directives) *SettingResolver {
	return &SettingResolver{
		directives: directives.WithDefaults(),
	}
}

func (r *SettingResolver) Directives() Directives {
	return r.directives
}
