/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package helper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huandu/xstrings"

	"github.com/kowabunga-cloud/koala/koala/common/metadata"
)

const (
	BackendPrefix      = "SERVICE_"
	DefaultBackendName = "default_service"
	DefaultPort        = "80"
	FrontendPrefix     = "port_"
)

type Backend struct {
	Name     string
	Settings []string
	Servers  []string
}

type ACL struct {
	Name    string
	Matcher string
}

type UseBackend struct {
	Backend    string
	Conditions []string
}

type Frontend struct {
	Name           string
	Port           string
	ACLs           []ACL
	UseBackends    []UseBackend
	DefaultBackend string
}

// Config is the resolved HAProxy model, ready to be laid out in a file.
type Config struct {
	Userlist  string
	Users     []User
	Frontends []Frontend
	Backends  []Backend
}

func BackendName(alias string) string {
	return BackendPrefix + alias
}

// BackendSettings gathers every per-service directive of alias, in the order
// HAProxy expects them to be read.
func (r *SettingResolver) BackendSettings(snap *metadata.Snapshot, basicAuth, alias string) ([]string, bool) {
	settings := []string{}
	settings = append(settings, r.BalanceSetting(snap.Details, alias)...)

	sticky, isSticky := r.StickySetting(snap.Details, alias)
	settings = append(settings, sticky...)

	settings = append(settings, r.ForceSSLSetting(snap.Details, alias)...)
	settings = append(settings, r.WebsocketSetting(snap.VHosts, alias)...)
	settings = append(settings, r.HTTPCheckSetting(snap.Details, alias)...)
	settings = append(settings, r.GzipCompressionSetting(snap.Details, alias)...)
	settings = append(settings, r.HSTSMaxAgeSetting(snap.Details, alias)...)
	settings = append(settings, r.OptionsSetting(snap.Details, alias)...)
	settings = append(settings, r.ExtraSettings(snap.Details, alias)...)
	settings = append(settings, r.BasicAuthSetting(snap.Details, basicAuth, alias)...)

	return settings, isSticky
}

// Compose resolves a whole snapshot. Services exposed through a virtual host
// get a dedicated backend; every other route lands once in the default one.
func (r *SettingResolver) Compose(snap *metadata.Snapshot, basicAuth string) *Config {
	cfg := &Config{
		Userlist:  r.directives.UserlistName,
		Users:     ParseBasicAuth(basicAuth),
		Frontends: []Frontend{},
		Backends:  []Backend{},
	}

	// never reference a userlist which won't be rendered
	if len(cfg.Users) == 0 {
		basicAuth = ""
	}

	added := RouteSet{}

	aliases := snap.VHosts.Aliases()
	sort.Strings(aliases)
	for _, alias := range aliases {
		settings, sticky := r.BackendSettings(snap, basicAuth, alias)
		cfg.Backends = append(cfg.Backends, Backend{
			Name:     BackendName(alias),
			Settings: settings,
			Servers:  r.BackendRoutes(sticky, snap.Routes, RouteSet{}, alias),
		})
		added.Merge(RouteSetOf(snap.Routes, alias))
	}

	all := make([]string, 0, len(snap.Routes))
	for alias := range snap.Routes {
		all = append(all, alias)
	}
	sort.Strings(all)

	leftovers := []string{}
	for _, alias := range all {
		leftovers = append(leftovers, r.BackendRoutes(false, snap.Routes, added, alias)...)
		added.Merge(RouteSetOf(snap.Routes, alias))
	}

	defaultBackend := ""
	if len(leftovers) > 0 {
		defaultBackend = DefaultBackendName
		cfg.Backends = append(cfg.Backends, Backend{
			Name:     DefaultBackendName,
			Settings: []string{},
			Servers:  leftovers,
		})
	}

	cfg.Frontends = frontends(snap.VHosts, defaultBackend)
	return cfg
}

func frontends(vhosts metadata.VirtualHosts, defaultBackend string) []Frontend {
	fronts := []Frontend{}
	index := map[string]int{}

	frontendFor := func(port string) *Frontend {
		id, ok := index[port]
		if !ok {
			fronts = append(fronts, Frontend{
				Name:        FrontendPrefix + port,
				Port:        port,
				ACLs:        []ACL{},
				UseBackends: []UseBackend{},
			})
			id = len(fronts) - 1
			index[port] = id
		}
		return &fronts[id]
	}

	for _, vh := range vhosts {
		if vh.ServiceAlias == "" {
			continue
		}

		port := vh.Port
		if port == "" {
			port = DefaultPort
		}
		fe := frontendFor(port)

		conditions := []string{}
		if acl, ok := hostACL(vh.Host); ok {
			conditions = append(conditions, fe.addACL(acl))
		}
		if acl, ok := pathACL(vh.Path); ok {
			conditions = append(conditions, fe.addACL(acl))
		}

		backend := BackendName(vh.ServiceAlias)
		if len(conditions) == 0 {
			if fe.DefaultBackend == "" {
				fe.DefaultBackend = backend
			}
			continue
		}
		fe.UseBackends = append(fe.UseBackends, UseBackend{
			Backend:    backend,
			Conditions: conditions,
		})
	}

	// plain routes remain reachable even without any virtual host
	if len(fronts) == 0 && defaultBackend != "" {
		frontendFor(DefaultPort)
	}

	for i := range fronts {
		if fronts[i].DefaultBackend == "" {
			fronts[i].DefaultBackend = defaultBackend
		}
	}

	return fronts
}

// addACL declares acl once per frontend and returns the name to reference.
// Distinct matchers canonicalised to the same name get a numbered suffix.
func (fe *Frontend) addACL(acl ACL) string {
	base := acl.Name
	for n := 2; ; n++ {
		taken := false
		for _, a := range fe.ACLs {
			if a.Name != acl.Name {
				continue
			}
			if a.Matcher == acl.Matcher {
				return a.Name
			}
			taken = true
			break
		}
		if !taken {
			break
		}
		acl.Name = fmt.Sprintf("%s_%d", base, n)
	}

	fe.ACLs = append(fe.ACLs, acl)
	return acl.Name
}

func hostACL(host string) (ACL, bool) {
	if host == "" || host == "*" {
		return ACL{}, false
	}

	if strings.HasPrefix(host, "*") {
		suffix := strings.TrimPrefix(host, "*")
		return ACL{
			Name:    aclName("host_wildcard", suffix),
			Matcher: fmt.Sprintf("hdr_end(host) -i %s", suffix),
		}, true
	}

	return ACL{
		Name:    aclName("host", host),
		Matcher: fmt.Sprintf("hdr(host) -i %s", host),
	}, true
}

func pathACL(path string) (ACL, bool) {
	if path == "" || path == "/" || path == "*" || path == "/*" {
		return ACL{}, false
	}

	return ACL{
		Name:    aclName("path", path),
		Matcher: fmt.Sprintf("path_beg %s", path),
	}, true
}

// aclName turns a host or path into an identifier HAProxy accepts.
func aclName(prefix, value string) string {
	canonical := xstrings.Translate(strings.ToLower(value), "/*.:", "_")
	return prefix + "_" + strings.Trim(canonical, "_")
}
