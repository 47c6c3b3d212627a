/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package helper

import (
	"fmt"

	"github.com/kowabunga-cloud/koala/koala/common/metadata"
)

const (
	SchemeWebsocket       = "ws"
	SchemeSecureWebsocket = "wss"

	hstsHeaderFmt = `rspadd Strict-Transport-Security:\ max-age=%s;\ includeSubDomains`
)

// WebsocketSetting keeps server connections closable as soon as one of the
// service virtual hosts is reached over websocket.
func (r *SettingResolver) WebsocketSetting(vhosts metadata.VirtualHosts, alias string) []string {
	for _, vh := range vhosts {
		if vh.ServiceAlias != alias {
			continue
		}
		if vh.Scheme == SchemeWebsocket || vh.Scheme == SchemeSecureWebsocket {
			return []string{r.directives.WebsocketOption}
		}
	}
	return []string{}
}

func (r *SettingResolver) BalanceSetting(details metadata.Details, alias string) []string {
	balance := details.Lookup(alias).Balance
	if balance == "" {
		return []string{}
	}
	return []string{fmt.Sprintf("balance %s", balance)}
}

// StickySetting also tells whether server lines must carry a cookie.
func (r *SettingResolver) StickySetting(details metadata.Details, alias string) ([]string, bool) {
	cookie := details.Lookup(alias).Cookie
	if cookie == "" {
		return []string{}, false
	}
	return []string{fmt.Sprintf("cookie %s", cookie)}, true
}

// ForceSSLSetting emits the redirect whenever force_ssl is set, whatever its
// value: "False" redirects too.
func (r *SettingResolver) ForceSSLSetting(details metadata.Details, alias string) []string {
	if details.Lookup(alias).ForceSSL == "" {
		return []string{}
	}
	return []string{r.directives.ForceSSLRedirect}
}

func (r *SettingResolver) HTTPCheckSetting(details metadata.Details, alias string) []string {
	check := details.Lookup(alias).HTTPCheck
	if check == "" {
		return []string{}
	}
	return []string{fmt.Sprintf("option httpchk %s", check)}
}

func (r *SettingResolver) HSTSMaxAgeSetting(details metadata.Details, alias string) []string {
	maxAge := details.Lookup(alias).HSTSMaxAge
	if maxAge == "" {
		return []string{}
	}
	return []string{fmt.Sprintf(hstsHeaderFmt, maxAge)}
}

func (r *SettingResolver) GzipCompressionSetting(details metadata.Details, alias string) []string {
	compression := details.Lookup(alias).GzipCompressionType
	if compression == "" {
		return []string{}
	}
	return []string{
		"compression algo gzip",
		fmt.Sprintf("compression type %s", compression),
	}
}

func (r *SettingResolver) OptionsSetting(details metadata.Details, alias string) []string {
	options := []string{}
	for _, opt := range details.Lookup(alias).Options {
		options = append(options, fmt.Sprintf("option %s", opt))
	}
	return options
}

// ExtraSettings splits the raw extra_settings value into directives. A comma
// escaped as `\,` stays part of the directive.
func (r *SettingResolver) ExtraSettings(details metadata.Details, alias string) []string {
	return splitEscaped(details.Lookup(alias).ExtraSettings)
}

// BasicAuthSetting protects the backend with the agent userlist, as long as
// some credentials are configured and the service did not opt out. Like
// force_ssl, any exclude_basic_auth value opts out: "false" and "0" too.
func (r *SettingResolver) BasicAuthSetting(details metadata.Details, basicAuth string, alias string) []string {
	if basicAuth == "" || details.Lookup(alias).ExcludeBasicAuth != "" {
		return []string{}
	}
	return []string{
		fmt.Sprintf("acl need_auth http_auth(%s)", r.directives.UserlistName),
		fmt.Sprintf("http-request auth realm %s if !need_auth", r.directives.AuthRealm),
	}
}
