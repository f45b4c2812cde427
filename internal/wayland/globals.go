package wayland

import (
	"sort"

	"github.com/bnema/waysurf/internal/session"
)

// GlobalInfo is one announced global and how the session would treat it.
type GlobalInfo struct {
	session.Global `yaml:",inline"`
	Wanted         bool   `json:"wanted" yaml:"wanted"`
	BindAt         uint32 `json:"bind_version,omitempty" yaml:"bind_version,omitempty"`
	Required       bool   `json:"required" yaml:"required"`
	Duplicated     bool   `json:"duplicated" yaml:"duplicated"`
}

// ListGlobals connects to the display, collects the announced globals
// with one roundtrip and disconnects.
func ListGlobals(name string) ([]GlobalInfo, error) {
	conn, err := Connect(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	events, err := conn.Roundtrip()
	if err != nil {
		return nil, err
	}
	return Describe(events), nil
}

// Describe turns registry events into GlobalInfo values sorted by name.
// Globals removed within the same batch are dropped.
func Describe(events []session.Event) []GlobalInfo {
	required := make(map[string]bool, len(session.RequiredInterfaces))
	for _, iface := range session.RequiredInterfaces {
		required[iface] = true
	}

	byName := make(map[uint32]session.Global)
	for _, ev := range events {
		switch e := ev.(type) {
		case session.GlobalEvent:
			byName[e.Name] = e.Global
		case session.GlobalRemoveEvent:
			delete(byName, e.Name)
		}
	}

	infos := make([]GlobalInfo, 0, len(byName))
	seen := make(map[string]int)
	for _, g := range byName {
		seen[g.Interface]++
	}
	for _, g := range byName {
		info := GlobalInfo{
			Global:     g,
			Wanted:     session.Wanted(g.Interface),
			Required:   required[g.Interface],
			Duplicated: seen[g.Interface] > 1,
		}
		if info.Wanted {
			info.BindAt = min(g.Version, session.MaxVersions[g.Interface])
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
