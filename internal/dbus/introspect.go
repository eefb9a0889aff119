package dbus

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// introspection mirrors the org.freedesktop.DBus.Introspectable XML.
type introspection struct {
	XMLName    xml.Name        `xml:"node"`
	Name       string          `xml:"name,attr"`
	Interfaces []introIface    `xml:"interface"`
	Children   []introspection `xml:"node"`
}

type introIface struct {
	Name string `xml:"name,attr"`
}

// ParseObject extracts one object's org-namespaced interfaces and the
// names of its direct child nodes.
func ParseObject(doc string) (ifaces, children []string, err error) {
	var root introspection
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, nil, fmt.Errorf("parsing introspection xml: %w", err)
	}
	for _, iface := range root.Interfaces {
		if strings.HasPrefix(iface.Name, OrgPrefix+".") {
			ifaces = append(ifaces, iface.Name)
		}
	}
	for _, child := range root.Children {
		if child.Name != "" {
			children = append(children, child.Name)
		}
	}
	return ifaces, children, nil
}

// ParseInterfaces extracts from introspection XML the interface names
// under the organization namespace, document order preserved. Standard
// freedesktop interfaces are dropped.
func ParseInterfaces(doc string) ([]string, error) {
	var root introspection
	if err := xml.Unmarshal([]byte(doc), &root); err != nil {
		return nil, fmt.Errorf("parsing introspection xml: %w", err)
	}
	var out []string
	collect(&root, &out)
	return out, nil
}

func collect(n *introspection, out *[]string) {
	for _, iface := range n.Interfaces {
		if strings.HasPrefix(iface.Name, OrgPrefix+".") {
			*out = append(*out, iface.Name)
		}
	}
	for i := range n.Children {
		collect(&n.Children[i], out)
	}
}
