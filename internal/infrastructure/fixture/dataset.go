// Package fixture provides an offline portal session backed by embedded sample data.
package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sxtim/b24-vuetify-earned-money-company-report/internal/domain/portal"
)

//go:embed fixtures.json
var embeddedFixtures []byte

// Dataset is the set of records served by a fixture session
type Dataset struct {
	Users     []portal.Record `json:"users"`
	Companies []portal.Record `json:"companies"`
	Deals     []portal.Record `json:"deals"`
	Tasks     []portal.Record `json:"tasks"`
}

// LoadDataset decodes a dataset from JSON
func LoadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("fixture: failed to decode dataset: %w", err)
	}
	return &ds, nil
}

var defaultDataset = sync.OnceValue(func() *Dataset {
	var ds Dataset
	if err := json.Unmarshal(embeddedFixtures, &ds); err != nil {
		panic(fmt.Sprintf("fixture: embedded dataset is invalid: %v", err))
	}
	return &ds
})

// DefaultDataset returns the embedded sample data: 3 users, 5 companies, 9 deals and 3 tasks
func DefaultDataset() *Dataset {
	ds := defaultDataset()
	return &Dataset{
		Users:     append([]portal.Record(nil), ds.Users...),
		Companies: append([]portal.Record(nil), ds.Companies...),
		Deals:     append([]portal.Record(nil), ds.Deals...),
		Tasks:     append([]portal.Record(nil), ds.Tasks...),
	}
}

// collection returns the records served by a method
func (d *Dataset) collection(method string) ([]portal.Record, bool) {
	switch method {
	case "user.get":
		return d.Users, true
	case "crm.company.list":
		return d.Companies, true
	case "crm.deal.list":
		return d.Deals, true
	case "tasks.task.list":
		return d.Tasks, true
	default:
		return nil, false
	}
}
