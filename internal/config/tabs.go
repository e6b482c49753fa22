package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultExchangeRate is the THB/USD rate used when no rate has been synced.
const DefaultExchangeRate = 35.0

// Tab is one business vertical of the dashboard and the teams reporting into it.
type Tab struct {
	ID    string   `yaml:"id" json:"id"`
	Label string   `yaml:"label" json:"label,omitempty"`
	Teams []string `yaml:"teams" json:"teams"`
	// AlwaysQualifyAdser renders adser buckets as "adser (team)" even when the
	// adser name is unique across teams.
	AlwaysQualifyAdser bool `yaml:"alwaysQualifyAdser" json:"alwaysQualifyAdser"`
}

// HasTeam reports whether team belongs to the tab.
func (t Tab) HasTeam(team string) bool {
	for _, name := range t.Teams {
		if name == team {
			return true
		}
	}
	return false
}

// TabSet is the validated tab -> teams mapping.
type TabSet struct {
	tabs    []Tab
	byID    map[string]int
	teamTab map[string]string
}

type tabsFile struct {
	Tabs []Tab `yaml:"tabs"`
}

// NewTabSet validates tabs and indexes them. Tab ids must be unique and a team
// may belong to one tab only.
func NewTabSet(tabs []Tab) (*TabSet, error) {
	if len(tabs) == 0 {
		return nil, fmt.Errorf("at least one tab is required")
	}

	ts := &TabSet{
		tabs:    make([]Tab, 0, len(tabs)),
		byID:    make(map[string]int, len(tabs)),
		teamTab: make(map[string]string),
	}

	for _, t := range tabs {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("tab id must not be empty")
		}
		if _, dup := ts.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tab %q", t.ID)
		}

		teams := make([]string, 0, len(t.Teams))
		for _, team := range t.Teams {
			team = strings.TrimSpace(team)
			if team == "" {
				continue
			}
			if owner, taken := ts.teamTab[team]; taken {
				return nil, fmt.Errorf("team %q is listed in both %q and %q", team, owner, t.ID)
			}
			ts.teamTab[team] = t.ID
			teams = append(teams, team)
		}
		t.Teams = teams

		ts.byID[t.ID] = len(ts.tabs)
		ts.tabs = append(ts.tabs, t)
	}

	return ts, nil
}

// LoadTabs reads a YAML tab file.
func LoadTabs(path string) (*TabSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tabs file: %w", err)
	}

	var f tabsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tabs file %s: %w", path, err)
	}

	ts, err := NewTabSet(f.Tabs)
	if err != nil {
		return nil, fmt.Errorf("invalid tabs file %s: %w", path, err)
	}
	return ts, nil
}

// Lookup returns the tab with the given id.
func (ts *TabSet) Lookup(id string) (Tab, bool) {
	i, ok := ts.byID[id]
	if !ok {
		return Tab{}, false
	}
	return ts.tabs[i], true
}

// All returns the tabs in configuration order.
func (ts *TabSet) All() []Tab {
	out := make([]Tab, len(ts.tabs))
	copy(out, ts.tabs)
	return out
}

// TabOf returns the id of the tab a team belongs to.
func (ts *TabSet) TabOf(team string) (string, bool) {
	id, ok := ts.teamTab[team]
	return id, ok
}

// DefaultTabs returns the historical mapping used when no tab file is given.
func DefaultTabs() *TabSet {
	ts, err := NewTabSet([]Tab{
		{
			ID:    "lottery",
			Label: "หวย",
			Teams: []string{"สาวอ้อย", "อลิน", "ลัคกี้", "เอฟซี"},
		},
		{
			ID:                 "baccarat",
			Label:              "บาคาร่า",
			Teams:              []string{"บาคาร่า A", "บาคาร่า B"},
			AlwaysQualifyAdser: true,
		},
		{
			ID:                 "horse-racing",
			Label:              "ม้า",
			Teams:              []string{"ม้าเร็ว"},
			AlwaysQualifyAdser: true,
		},
		{
			ID:    "football-area",
			Label: "ฟุตบอล",
			Teams: []string{"บอลโซน", "ฟุตบอลพรีเมียร์"},
		},
	})
	if err != nil {
		panic("invalid default tabs: " + err.Error())
	}
	return ts
}
