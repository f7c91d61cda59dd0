// Package addons describes the installed add-ons and the services they
// provide or consume.
package addons

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Role is the relation of an add-on to a service.
type Role string

const (
	// RoleProvide marks the add-on as a provider of the service.
	RoleProvide Role = "provide"
	// RoleNeed marks a hard dependency on the service.
	RoleNeed Role = "need"
	// RoleWant marks an optional dependency on the service.
	RoleWant Role = "want"
)

var serviceDeclaration = regexp.MustCompile(`^(\w+):(provide|want|need)$`)

// Addon is one installed add-on.
type Addon struct {
	Slug     string
	Name     string
	Services map[string]Role
}

// RoleFor returns the role the add-on declares for service, if any.
func (a Addon) RoleFor(service string) (Role, bool) {
	r, ok := a.Services[service]
	return r, ok
}

// Registry lists the installed add-ons.
type Registry interface {
	// InstalledAddons returns the installed add-ons in installation order.
	InstalledAddons(ctx context.Context) ([]Addon, error)
}

// ParseServices parses declarations such as "mqtt:provide" into a role map.
func ParseServices(decls []string) (map[string]Role, error) {
	roles := make(map[string]Role, len(decls))
	for _, d := range decls {
		m := serviceDeclaration.FindStringSubmatch(strings.TrimSpace(d))
		if m == nil {
			return nil, fmt.Errorf("invalid service declaration %q, expected <service>:<provide|want|need>", d)
		}
		roles[m[1]] = Role(m[2])
	}
	return roles, nil
}

// Providers returns the slugs of the add-ons providing service, in
// installation order.
func Providers(list []Addon, service string) []string {
	var out []string
	for _, a := range list {
		if r, ok := a.RoleFor(service); ok && r == RoleProvide {
			out = append(out, a.Slug)
		}
	}
	return out
}

// Static is a fixed Registry.
type Static []Addon

func (s Static) InstalledAddons(ctx context.Context) ([]Addon, error) {
	return append([]Addon(nil), s...), nil
}
