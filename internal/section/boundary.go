// Package section anchors every unit to the pre-data, data or post-data
// part of the order through two sentinel units.
package section

import (
	"github.com/leapstack-labs/leapdump/internal/catalog"
	"github.com/leapstack-labs/leapdump/internal/registry"
)

// Boundaries are the two sentinel units. They carry no source key and are
// never emitted.
type Boundaries struct {
	Pre  *catalog.Unit
	Post *catalog.Unit
}

// CreateBoundaries registers the two sentinels. POST-DATA depends on
// PRE-DATA from the start.
func CreateBoundaries(reg *registry.Registry) Boundaries {
	pre := &catalog.Unit{Kind: catalog.KindPreDataBoundary, Name: "PRE-DATA BOUNDARY"}
	reg.Register(pre)
	post := &catalog.Unit{Kind: catalog.KindPostDataBoundary, Name: "POST-DATA BOUNDARY"}
	reg.Register(post)
	reg.AddDependency(post, pre.ID)
	return Boundaries{Pre: pre, Post: post}
}

// WireBoundaries adds section edges for every unit: pre-data units come
// before PRE-DATA, data units between the two sentinels and post-data
// units after POST-DATA. Folded rules and constraints get no edge since
// they are emitted inside their owner's definition.
func WireBoundaries(reg *registry.Registry, units []*catalog.Unit, b Boundaries) {
	for _, u := range units {
		if u.Kind.IsBoundary() {
			continue
		}
		Wire(reg, u, b)
	}
}

// Wire adds the section edges of a single unit.
func Wire(reg *registry.Registry, u *catalog.Unit, b Boundaries) {
	switch u.Section() {
	case catalog.SectionPreData:
		reg.AddDependency(b.Pre, u.ID)
	case catalog.SectionData:
		reg.AddDependency(u, b.Pre.ID)
		reg.AddDependency(b.Post, u.ID)
	case catalog.SectionPostData:
		reg.AddDependency(u, b.Post.ID)
	}
}
