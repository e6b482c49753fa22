package dashboard

import (
	"fmt"

	"github.com/centxo/adser-dashboard/internal/config"
	"github.com/centxo/adser-dashboard/internal/models"
)

// keyer maps a record to its bucket display key for one view.
type keyer struct {
	view View
	tab  config.Tab
	// ambiguous holds adser names seen under more than one team.
	ambiguous map[string]bool
}

func newKeyer(view View, tab config.Tab, recs []*models.MetricRecord) *keyer {
	k := &keyer{view: view, tab: tab}
	if view != ViewAdser || tab.AlwaysQualifyAdser {
		return k
	}

	teamsByAdser := make(map[string]string)
	k.ambiguous = make(map[string]bool)
	for _, r := range recs {
		name := adserLabel(r)
		if team, seen := teamsByAdser[name]; !seen {
			teamsByAdser[name] = r.Team
		} else if team != r.Team {
			k.ambiguous[name] = true
		}
	}
	return k
}

func (k *keyer) key(r *models.MetricRecord) string {
	switch k.view {
	case ViewAll:
		return TotalLabel
	case ViewAdser:
		name := adserLabel(r)
		if k.tab.AlwaysQualifyAdser || k.ambiguous[name] {
			return fmt.Sprintf("%s (%s)", name, r.Team)
		}
		return name
	default:
		return r.Team
	}
}

func adserLabel(r *models.MetricRecord) string {
	if name := r.AdserName(); name != "" {
		return name
	}
	return UnknownAdserLabel
}
