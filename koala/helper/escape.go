/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package helper

import (
	"strings"
)

const (
	listSeparator = ','
	escapeMarker  = '\\'
)

func splitEscaped(value string) []string {
	segments := []string{}
	if value == "" {
		return segments
	}

	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			segments = append(segments, s)
		}
		current.Reset()
	}

	// separators are ASCII, scanning bytes keeps any other byte untouched
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == escapeMarker && i+1 < len(value) && value[i+1] == listSeparator:
			current.WriteByte(listSeparator)
			i++
		case c == listSeparator:
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return segments
}

type User struct {
	Name     string
	Password string
}

// ParseBasicAuth reads "user:pass" pairs separated by commas. Entries without
// a password are ignored.
func ParseBasicAuth(value string) []User {
	users := []User{}
	for _, pair := range splitEscaped(value) {
		name, password, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		password = strings.TrimSpace(password)
		if !ok || name == "" || password == "" {
			continue
		}
		users = append(users, User{
			Name:     name,
			Password: password,
		})
	}
	return users
}
