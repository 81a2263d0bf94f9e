// Package objectname defines the structured identity under which managed
// objects are registered. A name has the form "domain:type=T,name=N" and may
// carry additional key=value properties.
package objectname

import (
	"fmt"
	"sort"
	"strings"
)

type ObjectName struct {
	Domain     string
	Properties map[string]string
}

type MalformedNameError struct {
	Input  string
	Reason string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed object name %q: %s", e.Input, e.Reason)
}

// New builds an object name from a domain, a type and an instance name.
// All three are required.
func New(domain, typ, name string) (ObjectName, error) {
	on := ObjectName{
		Domain: domain,
		Properties: map[string]string{
			"type": typ,
			"name": name,
		},
	}
	if err := on.Validate(); err != nil {
		return ObjectName{}, err
	}
	return on, nil
}

// Parse parses "domain:type=T,name=N[,key=value...]".
func Parse(s string) (ObjectName, error) {
	domain, props, ok := strings.Cut(s, ":")
	if !ok {
		return ObjectName{}, &MalformedNameError{Input: s, Reason: "missing ':' between domain and properties"}
	}

	on := ObjectName{
		Domain:     domain,
		Properties: make(map[string]string),
	}
	for _, pair := range strings.Split(props, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return ObjectName{}, &MalformedNameError{Input: s, Reason: fmt.Sprintf("property %q is not key=value", pair)}
		}
		if _, dup := on.Properties[key]; dup {
			return ObjectName{}, &MalformedNameError{Input: s, Reason: fmt.Sprintf("duplicate property %q", key)}
		}
		on.Properties[key] = value
	}

	if err := on.Validate(); err != nil {
		return ObjectName{}, err
	}
	return on, nil
}

// Validate reports whether the name has a domain and the required type
// and name properties, with no reserved characters.
func (on ObjectName) Validate() error {
	if on.Domain == "" {
		return &MalformedNameError{Input: on.String(), Reason: "domain is required"}
	}
	if strings.ContainsAny(on.Domain, ":,=") {
		return &MalformedNameError{Input: on.String(), Reason: "domain must not contain ':', ',' or '='"}
	}
	for _, required := range []string{"type", "name"} {
		if on.Properties[required] == "" {
			return &MalformedNameError{Input: on.String(), Reason: fmt.Sprintf("property %q is required", required)}
		}
	}
	for key, value := range on.Properties {
		if strings.ContainsAny(key, ":,=") || strings.ContainsAny(value, ":,=") {
			return &MalformedNameError{Input: on.String(), Reason: fmt.Sprintf("property %q contains a reserved character", key)}
		}
	}
	return nil
}

// WithName returns a copy with the "name" property replaced.
func (on ObjectName) WithName(name string) (ObjectName, error) {
	props := make(map[string]string, len(on.Properties))
	for k, v := range on.Properties {
		props[k] = v
	}
	props["name"] = name

	replaced := ObjectName{Domain: on.Domain, Properties: props}
	if err := replaced.Validate(); err != nil {
		return ObjectName{}, err
	}
	return replaced, nil
}

func (on ObjectName) Type() string {
	return on.Properties["type"]
}

func (on ObjectName) Name() string {
	return on.Properties["name"]
}

// String renders the canonical form: type and name first, remaining
// properties in sorted order.
func (on ObjectName) String() string {
	var b strings.Builder
	b.WriteString(on.Domain)
	b.WriteByte(':')
	b.WriteString("type=")
	b.WriteString(on.Properties["type"])
	b.WriteString(",name=")
	b.WriteString(on.Properties["name"])

	extra := make([]string, 0, len(on.Properties))
	for key := range on.Properties {
		if key != "type" && key != "name" {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		b.WriteByte(',')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(on.Properties[key])
	}

	return b.String()
}
